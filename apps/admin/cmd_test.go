package main

import (
	"testing"

	"github.com/kozihq/kozi/tests"
)

type cliTest struct {
	name    string
	args    []string // without program name
	pin     string
	wantErr error
	errStr  string
}

func Test_commandLine_run(t *testing.T) {
	conf := testutil.NewConfig(t)
	testutil.WriteRoster(t, conf.RosterPath, "jane@siue.edu", "bob@siue.edu")
	cli := &commandLine{conf: conf}

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "hashpin: empty pin", args: []string{"hashpin"}, wantErr: errHelp},
		{name: "hashpin", args: []string{"hashpin"}, pin: "4321"},
		{name: "checkroster: default path", args: []string{"checkroster"}},
		{name: "checkroster: explicit path", args: []string{"checkroster", "-path", conf.RosterPath}},
		{name: "checkroster: missing file", args: []string{"checkroster", "-path", "nope.csv"}, errStr: "reading roster"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			return []byte(tt.pin), nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			case tt.errStr != "":
				if err == nil {
					t.Error("cli.run() expected an error")
				}
			default:
				if err != nil {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}
