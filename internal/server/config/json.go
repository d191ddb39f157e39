package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dkosarev/acportal/internal/flagx"
	"github.com/dkosarev/acportal/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "5s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. Fields are pointers so that a key absent from the
// file leaves the corresponding default untouched; only keys actually
// present overlay the runtime Config.
type JsonConfig struct {
	EndpointAddrHTTP      *string         `json:"endpoint_addr_http"`
	DatabaseDSN           *string         `json:"database_dsn"`
	SecretKey             *string         `json:"secret_key"`
	TokenValidityDuration *timex.Duration `json:"token_validity_duration"`
	SoapEndpoint          *string         `json:"soap_endpoint"`
	SoapUser              *string         `json:"soap_user"`
	SoapPassword          *string         `json:"soap_password"`
	SoapTimeout           *timex.Duration `json:"soap_timeout"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags; if neither
// is set, no JSON file is loaded. If the file cannot be read or contains
// invalid JSON, the function panics. The caller is expected to merge these
// values with defaults and command-line flags as part of the full
// configuration process.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	if c.EndpointAddrHTTP != nil {
		config.EndpointAddrHTTP = *c.EndpointAddrHTTP
	}
	if c.DatabaseDSN != nil {
		config.DatabaseDSN = *c.DatabaseDSN
	}
	if c.SecretKey != nil {
		config.SecretKey = *c.SecretKey
	}
	if c.TokenValidityDuration != nil {
		config.TokenValidityDuration = time.Duration(c.TokenValidityDuration.Duration)
	}
	if c.SoapEndpoint != nil {
		config.SoapEndpoint = *c.SoapEndpoint
	}
	if c.SoapUser != nil {
		config.SoapUser = *c.SoapUser
	}
	if c.SoapPassword != nil {
		config.SoapPassword = *c.SoapPassword
	}
	if c.SoapTimeout != nil {
		config.SoapTimeout = time.Duration(c.SoapTimeout.Duration)
	}
}
