package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mivanic/parley/internal/domain"
	"github.com/mivanic/parley/internal/service"
)

// API is the HTTP client the session and the registry/composer views
// talk through.
type API struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewAPI(baseURL string) *API {
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *API) Token() string {
	return a.token
}

func (a *API) Register(ctx context.Context, input service.RegisterInput) (*domain.Profile, error) {
	var resp service.AuthResponse
	if err := a.do(ctx, http.MethodPost, "/api/v1/auth/register", input, &resp); err != nil {
		return nil, err
	}
	a.token = resp.AccessToken
	return resp.Profile, nil
}

func (a *API) Login(ctx context.Context, email, password string) (*domain.Profile, error) {
	var resp service.AuthResponse
	input := service.LoginInput{Email: email, Password: password}
	if err := a.do(ctx, http.MethodPost, "/api/v1/auth/login", input, &resp); err != nil {
		return nil, err
	}
	a.token = resp.AccessToken
	return resp.Profile, nil
}

func (a *API) Conversations(ctx context.Context) ([]domain.Conversation, error) {
	var convs []domain.Conversation
	err := a.do(ctx, http.MethodGet, "/api/v1/conversations", nil, &convs)
	return convs, err
}

func (a *API) Candidates(ctx context.Context) ([]domain.Profile, error) {
	var profiles []domain.Profile
	err := a.do(ctx, http.MethodGet, "/api/v1/profiles/candidates", nil, &profiles)
	return profiles, err
}

func (a *API) CreateDirect(ctx context.Context, counterpartID uuid.UUID) (*domain.Conversation, error) {
	var conv domain.Conversation
	body := map[string]any{"counterpart_id": counterpartID}
	if err := a.do(ctx, http.MethodPost, "/api/v1/conversations/direct", body, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (a *API) CreateGroup(ctx context.Context, name string, memberIDs []uuid.UUID) (*domain.Conversation, error) {
	var conv domain.Conversation
	body := map[string]any{"name": name, "member_ids": memberIDs}
	if err := a.do(ctx, http.MethodPost, "/api/v1/conversations/group", body, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (a *API) DeleteConversations(ctx context.Context, ids []uuid.UUID) error {
	body := map[string]any{"ids": ids}
	return a.do(ctx, http.MethodDelete, "/api/v1/conversations", body, nil)
}

// History implements Backend.
func (a *API) History(ctx context.Context, conversationID uuid.UUID) (*domain.Conversation, []domain.Message, error) {
	var out struct {
		Conversation *domain.Conversation `json:"conversation"`
		Messages     []domain.Message     `json:"messages"`
	}
	path := fmt.Sprintf("/api/v1/conversations/%s/messages", conversationID)
	if err := a.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, nil, err
	}
	return out.Conversation, out.Messages, nil
}

// SendMessage implements Backend.
func (a *API) SendMessage(ctx context.Context, conversationID uuid.UUID, content string, attachments []domain.Attachment) error {
	body := map[string]any{"content": content}
	if len(attachments) > 0 {
		body["attachments"] = attachments
	}
	path := fmt.Sprintf("/api/v1/conversations/%s/messages", conversationID)
	return a.do(ctx, http.MethodPost, path, body, nil)
}

// Upload sends local files as one multipart batch and returns their
// attachment descriptors.
func (a *API) Upload(ctx context.Context, paths []string) ([]domain.Attachment, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", p, err)
		}
		part, err := mw.CreateFormFile("files", filepath.Base(p))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("adding %s: %w", p, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/v1/uploads", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var attachments []domain.Attachment
	if err := decodeResponse(resp, &attachments); err != nil {
		return nil, err
	}
	return attachments, nil
}

func (a *API) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode >= 400 {
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error.Message != "" {
			return fmt.Errorf("%s: %s", envelope.Error.Code, envelope.Error.Message)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
