package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Debug    bool
	TestMode bool
	Env      string
	AppName  string
	Build    string

	// SecretKey signs instructor tokens.
	SecretKey string
	// AppSalt seeds student handle derivation. A fixed default is used when
	// unset: handle stability within one deployment matters more than
	// unpredictability across deployments.
	AppSalt string

	DataDir          string
	RosterPath       string
	RosterTTL        time.Duration
	AllowedDomain    string
	SemesterEnd      time.Time
	RequireEmail     bool
	RequireStudentID bool

	SessionTTL time.Duration

	// InstructorPIN may be a plain PIN or a bcrypt hash of one.
	// Instructor endpoints are disabled when empty.
	InstructorPIN   string
	InstructorEmail string

	DefaultFromEmail string
	SendgridApiKey   string
	RollbarToken     string

	Server struct {
		Host               string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}
}

const semesterEndLayout = "2006-01-02"

func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Kozi")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "kaq2-wor)anb$+31=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("appSalt", "kozi-course-salt")
	v.SetDefault("dataDir", "data")
	v.SetDefault("rosterPath", filepath.Join("data", "roster.csv"))
	v.SetDefault("rosterTTL", 5*time.Minute)
	v.SetDefault("allowedDomain", "@siue.edu")
	v.SetDefault("semesterEnd", "2026-12-20")
	v.SetDefault("requireEmail", true)
	v.SetDefault("requireStudentID", false)
	v.SetDefault("sessionTTL", 12*time.Hour)
	v.SetDefault("instructorPIN", "")
	v.SetDefault("instructorEmail", "")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("serverHost", ":8000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 4*time.Hour)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	semEnd, err := time.ParseInLocation(semesterEndLayout, v.GetString("semesterEnd"), time.Local)
	if err != nil {
		log.Fatalf("config.semesterEnd(%s): %v", v.GetString("semesterEnd"), err)
	}
	// the cutoff is inclusive of the last day
	semEnd = semEnd.Add(24*time.Hour - time.Second)

	conf := &Config{
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		Env:              env,
		AppName:          v.GetString("appName"),
		Build:            v.GetString("build"),
		SecretKey:        v.GetString("secretKey"),
		AppSalt:          v.GetString("appSalt"),
		DataDir:          v.GetString("dataDir"),
		RosterPath:       v.GetString("rosterPath"),
		RosterTTL:        v.GetDuration("rosterTTL"),
		AllowedDomain:    strings.ToLower(strings.TrimSpace(v.GetString("allowedDomain"))),
		SemesterEnd:      semEnd,
		RequireEmail:     v.GetBool("requireEmail"),
		RequireStudentID: v.GetBool("requireStudentID"),
		SessionTTL:       v.GetDuration("sessionTTL"),
		InstructorPIN:    v.GetString("instructorPIN"),
		InstructorEmail:  v.GetString("instructorEmail"),
		DefaultFromEmail: v.GetString("defaultFromEmail"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
	}
	conf.Server.Host = v.GetString("serverHost")
	conf.Server.ShutdownTimeout = v.GetDuration("serverShutdownTimeout")
	conf.Server.JWTExpirationDelta = v.GetDuration("jwtExpirationDelta")
	return conf
}
