package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
)

type BaseHTTPSuite struct {
	suite.Suite
	Config Config
	client *http.Client
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseHTTPSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.APIAddr == "" {
		s.T().Skip("E2E_API_ADDR not set")
	}
	s.client = &http.Client{Timeout: 10 * time.Second}
}

// Step prints a colorized header for a scenario step
func (s *BaseHTTPSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Do sends a request as user (no header when empty) and returns the status and raw body.
func (s *BaseHTTPSuite) Do(method, path, user string, body any) (int, []byte) {
	var reader io.Reader
	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(encoded)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(s.Config.APIAddr, "/")+path, reader)
	s.Require().NoError(err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("user", user)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	s.Require().NoError(err, "Failed to reach "+s.Config.APIAddr)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	logBuilder := strings.Builder{}
	fmt.Fprintf(&logBuilder, "HTTP %s %s [%d] in %v", method, path, resp.StatusCode, time.Since(start))
	if s.Config.DebugJSON {
		fmt.Fprintf(&logBuilder, "\nREQUEST:\n%s\nRESPONSE:\n%s", encoded, raw)
	}
	s.T().Log(logBuilder.String())
	return resp.StatusCode, raw
}

// DecodeJSON unmarshals raw into a fresh T.
func DecodeJSON[T any](s *BaseHTTPSuite, raw []byte) T {
	var v T
	s.Require().NoError(json.Unmarshal(raw, &v), string(raw))
	return v
}
