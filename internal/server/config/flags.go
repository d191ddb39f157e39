package config

import (
	"flag"
	"os"
	"time"

	"github.com/dkosarev/acportal/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      session token validity, minutes
//	-e string   SOAP endpoint (e.g., "http://localhost:7878")
//	-u string   SOAP user
//	-p string   SOAP password
//	-w int      SOAP timeout, seconds
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Duration
// flags are accepted as integers and converted to time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-e", "-u", "-p", "-w"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	tokenValidityDuration := fs.Int("t", int(config.TokenValidityDuration.Minutes()), "token_validity_duration (in minutes)")

	fs.StringVar(&config.SoapEndpoint, "e", config.SoapEndpoint, "SOAP endpoint")
	fs.StringVar(&config.SoapUser, "u", config.SoapUser, "SOAP user")
	fs.StringVar(&config.SoapPassword, "p", config.SoapPassword, "SOAP password")

	soapTimeout := fs.Int("w", int(config.SoapTimeout.Seconds()), "soap_timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TokenValidityDuration = time.Duration(*tokenValidityDuration) * time.Minute
	config.SoapTimeout = time.Duration(*soapTimeout) * time.Second
}
