// Package soap implements the request/response client for the game server's
// remote command channel (the worldserver SOAP endpoint).
//
// The channel is always possibly unavailable, so Execute never returns a Go
// error: connection failures, timeouts and malformed responses all collapse
// into a Result with Success=false and a human-readable diagnostic. Callers
// decide what to do with a failed command; this client makes exactly one
// attempt and never retries.
//
// The command string is passed through verbatim. The protocol defines no
// escaping rules, so none are applied here; callers that interpolate
// user-supplied text into commands inherit that gap.
package soap

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dkosarev/acportal/internal/logging"
)

// DefaultTimeout bounds a single command round-trip.
const DefaultTimeout = 5 * time.Second

const envelopeFormat = `<SOAP-ENV:Envelope` +
	` xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/"` +
	` xmlns:SOAP-ENC="http://schemas.xmlsoap.org/soap/encoding/"` +
	` xmlns:xsi="http://www.w3.org/1999/XMLSchema-instance"` +
	` xmlns:xsd="http://www.w3.org/1999/XMLSchema"` +
	` xmlns:ns1="urn:AC">` +
	`<SOAP-ENV:Body>` +
	`<ns1:executeCommand>` +
	`<command>%s</command>` +
	`</ns1:executeCommand>` +
	`</SOAP-ENV:Body>` +
	`</SOAP-ENV:Envelope>`

// Result is the outcome of one remote command.
// On success Output holds the command's result text; on failure it holds
// the fault string or transport diagnostic.
type Result struct {
	Success bool
	Output  string
}

// envelope covers both response shapes the endpoint produces:
// executeCommandResponse/result on success, Fault/faultstring on rejection.
type envelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Fault *struct {
			FaultString string `xml:"faultstring"`
		} `xml:"Fault"`
		CommandResponse *struct {
			Result string `xml:"result"`
		} `xml:"executeCommandResponse"`
	} `xml:"Body"`
}

type Client struct {
	endpoint string
	username string
	password string
	client   *http.Client
	logger   logging.Logger
}

func NewClient(endpoint, username, password string, timeout time.Duration, logger logging.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		username: username,
		password: password,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With("module", "soap_client"),
	}
}

// Execute sends one command and interprets the response. It never returns a
// Go error; see the package comment.
func (c *Client) Execute(ctx context.Context, command string) Result {

	body := fmt.Sprintf(envelopeFormat, command)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBufferString(body))
	if err != nil {
		return c.failure(ctx, command, "building SOAP request failed: "+err.Error())
	}
	req.Header.Set("Content-Type", "application/xml")
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.client.Do(req)
	if err != nil {
		var uerr interface{ Timeout() bool }
		if errors.As(err, &uerr) && uerr.Timeout() {
			return c.failure(ctx, command, "SOAP request timed out")
		}
		return c.failure(ctx, command, "SOAP connection failed: "+err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.failure(ctx, command, "reading SOAP response failed: "+err.Error())
	}

	var env envelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return c.failure(ctx, command, "parsing SOAP response failed: "+err.Error())
	}

	if env.Body.Fault != nil {
		return c.failure(ctx, command, env.Body.Fault.FaultString)
	}

	if env.Body.CommandResponse != nil {
		c.logger.Debug(ctx, "command executed", "command", command)
		return Result{Success: true, Output: env.Body.CommandResponse.Result}
	}

	return c.failure(ctx, command, "invalid response format")
}

func (c *Client) failure(ctx context.Context, command, diagnostic string) Result {
	c.logger.Warn(ctx, "command failed", "command", command, "error", diagnostic)
	return Result{Success: false, Output: diagnostic}
}
