package libapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	ulid "github.com/oklog/ulid/v2"

	"libdesk/internal/domain"
	"libdesk/internal/platform/requestid"
)

const idempotencyHeader = "Idempotency-Key"

// Client calls the library backend over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	loc        *time.Location
}

// Error is a non-2xx answer from the library backend.
type Error struct {
	Status  int
	Message string
	Path    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("library backend %s: %d %s", e.Path, e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == http.StatusNotFound
}

// NewClient constructs a backend client. Dates without a zone are read in loc.
func NewClient(baseURL string, timeout time.Duration, loc *time.Location) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if loc == nil {
		loc = time.Local
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		loc:        loc,
	}
}

// ---------- books ----------

// ListBooks returns the catalog, filtered by genre when genre is non-empty.
func (c *Client) ListBooks(ctx context.Context, genre string) ([]domain.Book, error) {
	path := "/books"
	if strings.TrimSpace(genre) != "" {
		path += "?" + url.Values{"genre": {genre}}.Encode()
	}
	var raw []wireBook
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	books := make([]domain.Book, 0, len(raw))
	for _, w := range raw {
		books = append(books, w.normalize(ctx))
	}
	return books, nil
}

func (c *Client) AddBook(ctx context.Context, b domain.Book) (domain.Book, error) {
	var out wireBook
	if err := c.do(ctx, http.MethodPost, "/books/add", encodeBook(b), &out); err != nil {
		return domain.Book{}, err
	}
	return out.normalizeOr(ctx, b), nil
}

func (c *Client) UpdateBook(ctx context.Context, b domain.Book) (domain.Book, error) {
	path := "/books/update/" + strconv.FormatInt(b.ID, 10)
	var out wireBook
	if err := c.do(ctx, http.MethodPut, path, encodeBook(b), &out); err != nil {
		return domain.Book{}, err
	}
	return out.normalizeOr(ctx, b), nil
}

// ---------- borrowings ----------

func (c *Client) ListBorrowings(ctx context.Context) ([]domain.Borrowing, error) {
	var raw []wireBorrowing
	if err := c.do(ctx, http.MethodGet, "/borrowings", nil, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.Borrowing, 0, len(raw))
	for _, w := range raw {
		out = append(out, w.normalize(ctx, c.loc))
	}
	return out, nil
}

func (c *Client) CreateBorrowing(ctx context.Context, b domain.Borrowing) (domain.Borrowing, error) {
	var out wireBorrowing
	if err := c.do(ctx, http.MethodPost, "/borrowings", encodeBorrowing(b), &out); err != nil {
		return domain.Borrowing{}, err
	}
	return out.normalizeOr(ctx, c.loc, b), nil
}

func (c *Client) UpdateBorrowing(ctx context.Context, b domain.Borrowing) (domain.Borrowing, error) {
	path := "/borrowings/" + strconv.FormatInt(b.ID, 10)
	var out wireBorrowing
	if err := c.do(ctx, http.MethodPut, path, encodeBorrowing(b), &out); err != nil {
		return domain.Borrowing{}, err
	}
	return out.normalizeOr(ctx, c.loc, b), nil
}

// ---------- members ----------

func (c *Client) ListMembers(ctx context.Context) ([]domain.Member, error) {
	var raw []wireMember
	if err := c.do(ctx, http.MethodGet, "/members", nil, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.Member, 0, len(raw))
	for _, w := range raw {
		out = append(out, w.normalize())
	}
	return out, nil
}

// AddMember creates a member with an initial password.
func (c *Client) AddMember(ctx context.Context, m domain.Member, password string) (domain.Member, error) {
	var out wireMember
	if err := c.do(ctx, http.MethodPost, "/members", encodeMember(m, password), &out); err != nil {
		return domain.Member{}, err
	}
	return out.normalizeOr(m), nil
}

func (c *Client) UpdateMember(ctx context.Context, m domain.Member) (domain.Member, error) {
	path := "/members/" + strconv.FormatInt(m.ID, 10)
	var out wireMember
	if err := c.do(ctx, http.MethodPut, path, encodeMember(m, ""), &out); err != nil {
		return domain.Member{}, err
	}
	return out.normalizeOr(m), nil
}

func (c *Client) DeleteMember(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/members/"+strconv.FormatInt(id, 10), nil, nil)
}

// ---------- auth ----------

// LoginResult is the normalized answer of the backend login endpoint, which
// replies either with a bare boolean or with a session payload.
type LoginResult struct {
	OK       bool
	Email    string
	Name     string
	Role     string
	MemberID int64
}

func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	body := map[string]string{"email": email, "password": password}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/members/auth/login", body, &raw); err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
			return LoginResult{OK: false, Email: email}, nil
		}
		return LoginResult{}, err
	}
	return decodeLogin(raw, email)
}

// ---------- transport ----------

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// 書き込み系は毎回キーを付ける（再送時の二重登録防止）
	if method != http.MethodGet {
		req.Header.Set(idempotencyHeader, ulid.Make().String())
	}
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.Header, id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	// 4xx/5xx はステータスを保ったまま返す（404 の判定に使う）
	if resp.StatusCode >= 400 {
		return &Error{Status: resp.StatusCode, Message: errorMessage(resp), Path: path}
	}
	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}
	// 空ボディは成功扱い（呼び出し側で送った値を使う）
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func errorMessage(resp *http.Response) string {
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(data, &errResp)
	switch {
	case errResp.Message != "":
		return errResp.Message
	case errResp.Error != "":
		return errResp.Error
	default:
		return resp.Status
	}
}
