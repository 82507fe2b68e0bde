package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"flag"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

var (
	dir  = flag.String("dir", "", "Directory where the keys will be stored")
	bits = flag.Int("bits", 2048, "RSA key size")
)

func writePEM(filename, blockType string, der []byte, perm os.FileMode) {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		logrus.WithError(err).Fatal("could not create key file")
	}
	if err = pem.Encode(file, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		logrus.WithError(err).Fatal("could not encode key")
	}
	if err = file.Close(); err != nil {
		logrus.WithError(err).Fatal("could not close key file")
	}
	logrus.WithField("file", filename).Info("key written")
}

// keygen creates the RSA key pair used to sign access and refresh tokens. The private key is
// the file referenced by private_key_file.
func main() {
	flag.Parse()
	if *dir == "" {
		logrus.Fatal("no directory was given")
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, *bits)
	if err != nil {
		logrus.WithError(err).Fatal("could not generate key")
	}
	publicDER, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		logrus.WithError(err).Fatal("could not marshal public key")
	}

	writePEM(filepath.Join(*dir, "private.pem"), "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(privateKey), 0600)
	writePEM(filepath.Join(*dir, "public.pem"), "PUBLIC KEY", publicDER, 0644)
}
