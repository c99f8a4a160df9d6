package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"

	"printdesk-chat/internal/models"
)

func defaultDialer(wsURL string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (s *Session) fetchConversation(ctx context.Context) ([]models.Message, error) {
	endpoint := fmt.Sprintf("%s/messages?user1=%s&user2=%s",
		s.opts.BaseURL, url.QueryEscape(s.opts.Identity), url.QueryEscape(s.opts.AdminEmail))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var msgs []models.Message
	if err := json.NewDecoder(resp.Body).Decode(&msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *Session) postMessage(ctx context.Context, sender, receiver, body string) (models.Message, error) {
	payload, _ := json.Marshal(map[string]string{
		"sender":   sender,
		"receiver": receiver,
		"message":  body,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.opts.BaseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return models.Message{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return models.Message{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return models.Message{}, apiError(resp)
	}

	var stored models.Message
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		return models.Message{}, err
	}
	return stored, nil
}

func (s *Session) deleteMessage(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.opts.BaseURL+"/messages/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return nil
}

func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Error != "" {
		return fmt.Errorf("chat api %d: %s", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("chat api: unexpected status %d", resp.StatusCode)
}
