package main

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// hashPIN prints a bcrypt hash of the instructor PIN, suitable for the
// instructorPIN config value so the plain PIN never sits in the environment.
func (cli *commandLine) hashPIN(pin string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	fmt.Println(string(hash))
	return nil
}
