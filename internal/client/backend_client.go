package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storyweaver/internal/models"

	"go.uber.org/zap"
)

// backendClient реализует BackendGateway.
type backendClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	auth       models.AuthContext
}

// NewBackendClient создаёт шлюз без токена; авторизованные вызовы идут через WithAuth.
func NewBackendClient(baseURL string, timeout time.Duration, logger *zap.Logger) (BackendGateway, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid backend base URL: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &backendClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("BackendClient"),
	}, nil
}

func (c *backendClient) WithAuth(auth models.AuthContext) BackendGateway {
	bound := *c
	bound.auth = auth
	return &bound
}

func (c *backendClient) Login(ctx context.Context, email, password string) (string, error) {
	status, body, err := c.do(ctx, "login", http.MethodPost, "/users/login", loginRequest{Email: email, Password: password}, false)
	if err != nil {
		return "", err
	}
	if !isSuccess(status) {
		msg := parseErrorBody(body).detailText()
		if msg == "" {
			msg = models.MsgLoginFailed
		}
		return "", models.NewAppError(models.ErrAuth, msg, statusError(status))
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.AccessToken == "" {
		c.logger.Error("Login response has no access token", zap.Int("status", status), zap.Error(err))
		return "", models.NewAppError(models.ErrAuth, models.MsgLoginFailed, errors.New("missing access_token in login response"))
	}
	return resp.AccessToken, nil
}

func (c *backendClient) Register(ctx context.Context, name, email, password string) error {
	status, body, err := c.do(ctx, "register", http.MethodPost, "/users/register", registerRequest{Name: name, Email: email, Password: password}, false)
	if err != nil {
		return err
	}
	if isSuccess(status) {
		return nil
	}
	eb := parseErrorBody(body)
	msg := strings.TrimSpace(eb.Message)
	if msg == "" {
		msg = eb.detailText()
	}
	if msg == "" {
		msg = models.MsgRegistrationFailed
	}
	return models.NewAppError(models.ErrAuth, msg, statusError(status))
}

func (c *backendClient) FetchCurrentUser(ctx context.Context) (*models.User, error) {
	if !c.auth.Authenticated() {
		return nil, models.NewAppError(models.ErrAuth, models.MsgSessionExpired, errors.New("no auth token"))
	}
	status, body, err := c.do(ctx, "fetch_current_user", http.MethodGet, "/users/me", nil, true)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, models.NewAppError(models.ErrAuth, models.MsgSessionExpired, statusError(status))
	}

	var resp userResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.ID == "" {
		c.logger.Warn("Invalid /users/me response", zap.ByteString("body", body), zap.Error(err))
		return nil, models.NewAppError(models.ErrAuth, models.MsgSessionExpired, errors.New("invalid user payload"))
	}
	return &models.User{ID: string(resp.ID), Name: resp.Name, Email: resp.Email}, nil
}

func (c *backendClient) StartStory(ctx context.Context, prompt, userID string) (*models.StoryDraft, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, models.NewValidationError("prompt")
	}
	status, body, err := c.do(ctx, "start_story", http.MethodPost, "/stories/generate", generateRequest{Prompt: prompt, UserID: userID}, true)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, storyError(status, body, models.MsgGenerateFailed, false)
	}
	return c.decodeDraft(body, models.MsgGenerateFailed)
}

func (c *backendClient) ReviseStory(ctx context.Context, draftID, instruction string) (*models.StoryDraft, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return nil, models.NewValidationError("instruction")
	}
	if draftID == "" {
		return nil, models.NewValidationError("draftId")
	}
	status, body, err := c.do(ctx, "revise_story", http.MethodPost, "/drafts/revise", reviseRequest{DraftID: draftID, Instruction: instruction}, true)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, storyError(status, body, models.MsgReviseFailed, true)
	}
	return c.decodeDraft(body, models.MsgReviseFailed)
}

func (c *backendClient) ListDrafts(ctx context.Context, userID string) ([]models.StoryDraft, error) {
	if userID == "" {
		return nil, models.NewValidationError("userId")
	}
	status, body, err := c.do(ctx, "list_drafts", http.MethodGet, "/drafts/user/"+url.PathEscape(userID), nil, true)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, storyError(status, body, models.MsgHistoryFailed, true)
	}

	dtos, err := decodeDraftList(body)
	if err != nil {
		c.logger.Error("Unexpected drafts list payload", zap.ByteString("body", body), zap.Error(err))
		return nil, models.NewAppError(models.ErrBackend, models.MsgHistoryFailed, err)
	}
	drafts := make([]models.StoryDraft, 0, len(dtos))
	for _, d := range dtos {
		draft := d.toModel()
		if strings.TrimSpace(draft.Title) == "" {
			draft.Title = SynthesizeTitle(draft.Content)
		}
		drafts = append(drafts, draft)
	}
	return drafts, nil
}

func (c *backendClient) DeleteDraft(ctx context.Context, draftID string) error {
	if draftID == "" {
		return models.NewValidationError("draftId")
	}
	status, body, err := c.do(ctx, "delete_draft", http.MethodDelete, "/drafts/draft/"+url.PathEscape(draftID), nil, true)
	if err != nil {
		return err
	}
	if !isSuccess(status) {
		return storyError(status, body, models.MsgDeleteFailed, true)
	}
	return nil
}

// SynthesizeTitle - первые пять слов текста и многоточие.
func SynthesizeTitle(content string) string {
	words := strings.Fields(content)
	if len(words) > 5 {
		words = words[:5]
	}
	return strings.Join(words, " ") + "..."
}

// decodeDraftList принимает как голый массив, так и {"drafts": [...]}.
func decodeDraftList(body []byte) ([]draftDTO, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty body")
	}
	switch trimmed[0] {
	case '[':
		var list []draftDTO
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode drafts array: %w", err)
		}
		return list, nil
	case '{':
		var obj draftsObject
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, fmt.Errorf("decode drafts object: %w", err)
		}
		return obj.Drafts, nil
	}
	return nil, fmt.Errorf("unexpected drafts payload starting with %q", trimmed[0])
}

func (c *backendClient) decodeDraft(body []byte, fallback string) (*models.StoryDraft, error) {
	var env draftEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Draft == nil || env.Draft.ID == "" {
		c.logger.Error("Backend response has no draft", zap.ByteString("body", body), zap.Error(err))
		return nil, models.NewAppError(models.ErrBackend, fallback, errors.New("missing draft in response"))
	}
	draft := env.Draft.toModel()
	return &draft, nil
}

// do выполняет один запрос. Ошибки транспорта превращаются в ErrNetwork,
// статус и тело ответа разбирает вызывающий.
func (c *backendClient) do(ctx context.Context, op, method, path string, payload any, withAuth bool) (int, []byte, error) {
	fullURL := c.baseURL + path
	log := c.logger.With(zap.String("operation", op), zap.String("url", fullURL))
	start := time.Now()
	outcome := "error"
	defer func() {
		gatewayRequestDuration.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
	}()

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			log.Error("Failed to marshal request payload", zap.Error(err))
			return 0, nil, fmt.Errorf("internal error marshalling request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		log.Error("Failed to create HTTP request", zap.Error(err))
		return 0, nil, fmt.Errorf("internal error creating request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if withAuth && c.auth.Authenticated() {
		req.Header.Set("Authorization", "Bearer "+c.auth.Token)
	}

	log.Debug("Sending request to backend")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("Request to backend timed out", zap.Error(err))
		} else {
			log.Warn("Request to backend failed", zap.Error(err))
		}
		return 0, nil, models.NewAppError(models.ErrNetwork, models.MsgNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warn("Failed to read backend response", zap.Int("status", resp.StatusCode), zap.Error(err))
		return 0, nil, models.NewAppError(models.ErrNetwork, models.MsgNetwork, err)
	}

	if isSuccess(resp.StatusCode) {
		outcome = "success"
		log.Debug("Backend request succeeded", zap.Int("status", resp.StatusCode), zap.Duration("duration", time.Since(start)))
	} else {
		outcome = fmt.Sprintf("http_%dxx", resp.StatusCode/100)
		log.Warn("Backend returned error status", zap.Int("status", resp.StatusCode), zap.ByteString("body", body))
	}
	return resp.StatusCode, body, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
