package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var sctpKeyRegex = regexp.MustCompile(`^sctp(\d+)t`)

// ServerChanSink pushes through ServerChan (Turbo and SC3 send keys)
type ServerChanSink struct {
	endpoint string
	client   *http.Client
}

// NewServerChanSink derives the endpoint from the send key the same way the
// official SDK does: SC3 keys ("sctp<uid>t...") go to the per-user host.
func NewServerChanSink(sendKey string) *ServerChanSink {
	endpoint := fmt.Sprintf("https://sctapi.ftqq.com/%s.send", sendKey)
	if m := sctpKeyRegex.FindStringSubmatch(sendKey); len(m) > 1 {
		endpoint = fmt.Sprintf("https://%s.push.ft07.com/send/%s.send", m[1], sendKey)
	}
	return newServerChanSinkWithEndpoint(endpoint)
}

func newServerChanSinkWithEndpoint(endpoint string) *ServerChanSink {
	return &ServerChanSink{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

type serverChanResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Push sends one message
func (s *ServerChanSink) Push(ctx context.Context, msg Message) error {
	payload := map[string]string{
		"title": msg.Title,
		"desp":  msg.Body,
	}
	if len(msg.Tags) > 0 {
		payload["tags"] = strings.Join(msg.Tags, "|")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal serverchan payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create serverchan request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json;charset=utf-8")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send serverchan message: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("serverchan returned status %d", resp.StatusCode)
	}

	var result serverChanResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("decode serverchan response: %w", err)
	}
	if result.Code != 0 {
		return fmt.Errorf("serverchan error %d: %s", result.Code, result.Message)
	}
	return nil
}
