package main

import (
	"flag"
	"fmt"
	"hospital-management/internal/auth"

	"github.com/sirupsen/logrus"
)

var pass = flag.String("pass", "", "Password to encrypt")

// passgen prints the bcrypt hash stored in tb_user.password when seeding staff accounts.
func main() {
	flag.Parse()
	if *pass == "" {
		logrus.Fatal("no password was given")
	}

	passHash, err := auth.EncryptPassword(*pass)
	if err != nil {
		logrus.WithError(err).Fatal("could not hash the password")
	}

	fmt.Println(passHash)
}
