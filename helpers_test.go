package authgate

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testConfig(t *testing.T) Config {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("keygen failed: %v", err)
	}

	cfg := defaultConfig()
	cfg.Token.PrivateKey = priv
	cfg.Token.PublicKey = pub
	// Cheap hashing parameters keep the suite fast.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func newTestEngine(t *testing.T, mutate func(*Config)) (*Engine, *mockDirectory, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := testConfig(t)
	if mutate != nil {
		mutate(&cfg)
	}

	dir := newMockDirectory()
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithDirectory(dir).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("engine build failed: %v", err)
	}

	done := func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	}
	return engine, dir, done
}

func seedAccount(t *testing.T, engine *Engine, username, email, password string) int64 {
	t.Helper()

	result, err := engine.SignUp(context.Background(), SignUpRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		t.Fatalf("seed signup failed: %v", err)
	}
	return result.AccountID
}

// enrollAndConfirm walks an account through enrollment to the enabled
// state and returns the stored secret.
func enrollAndConfirm(t *testing.T, engine *Engine, dir *mockDirectory, accountID int64) []byte {
	t.Helper()

	if _, err := engine.EnrollTwoFactor(context.Background(), accountID); err != nil {
		t.Fatalf("enroll failed: %v", err)
	}
	secret := dir.mustGet(t, accountID).TwoFactorSecret
	code := codeAtTime(t, engine, secret, time.Now())
	if err := engine.ConfirmTwoFactorEnrollment(context.Background(), accountID, code); err != nil {
		t.Fatalf("confirm enrollment failed: %v", err)
	}
	return secret
}

func codeAtTime(t *testing.T, engine *Engine, secret []byte, at time.Time) string {
	t.Helper()

	code, err := engine.totp.codeAt(secret, at.Unix()/int64(engine.totp.period))
	if err != nil {
		t.Fatalf("code computation failed: %v", err)
	}
	return code
}

// newTestEngineNotify is newTestEngine with a capturing notifier wired
// in, for reset flows that need the delivered token.
func newTestEngineNotify(t *testing.T, mutate func(*Config)) (*Engine, *mockDirectory, *captureNotifier, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := testConfig(t)
	if mutate != nil {
		mutate(&cfg)
	}

	dir := newMockDirectory()
	notifier := &captureNotifier{}
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithDirectory(dir).
		WithNotifier(notifier).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("engine build failed: %v", err)
	}

	done := func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	}
	return engine, dir, notifier, done
}

type captureNotifier struct {
	mu     sync.Mutex
	tokens []string
}

func (n *captureNotifier) PasswordResetIssued(_ context.Context, _ AccountRecord, token string, _ time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tokens = append(n.tokens, token)
}

func (n *captureNotifier) lastToken(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.tokens) == 0 {
		t.Fatal("no reset token was delivered")
	}
	return n.tokens[len(n.tokens)-1]
}

func (n *captureNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.tokens)
}

type mockDirectory struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[int64]AccountRecord
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{
		nextID:   1,
		accounts: make(map[int64]AccountRecord),
	}
}

func (d *mockDirectory) AccountByID(_ context.Context, id int64) (AccountRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	account, ok := d.accounts[id]
	if !ok {
		return AccountRecord{}, ErrDirectoryNotFound
	}
	return account, nil
}

func (d *mockDirectory) AccountByUsername(_ context.Context, username string) (AccountRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, account := range d.accounts {
		if account.Username == username {
			return account, nil
		}
	}
	return AccountRecord{}, ErrDirectoryNotFound
}

func (d *mockDirectory) AccountByEmail(_ context.Context, email string) (AccountRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, account := range d.accounts {
		if strings.EqualFold(account.Email, email) {
			return account, nil
		}
	}
	return AccountRecord{}, ErrDirectoryNotFound
}

func (d *mockDirectory) CreateAccount(_ context.Context, input CreateAccountInput) (AccountRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, account := range d.accounts {
		if account.Username == input.Username {
			return AccountRecord{}, ErrDirectoryDuplicateUsername
		}
		if strings.EqualFold(account.Email, input.Email) {
			return AccountRecord{}, ErrDirectoryDuplicateEmail
		}
	}

	account := AccountRecord{
		ID:                  d.nextID,
		Username:            input.Username,
		Email:               input.Email,
		PasswordHash:        input.PasswordHash,
		Role:                input.Role,
		AccountExpiresAt:    input.AccountExpiresAt,
		CredentialsExpireAt: input.CredentialsExpireAt,
	}
	d.nextID++
	d.accounts[account.ID] = account
	return account, nil
}

func (d *mockDirectory) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	return d.update(id, func(account *AccountRecord) {
		account.PasswordHash = hash
	})
}

func (d *mockDirectory) SetTwoFactorSecret(_ context.Context, id int64, secret []byte) error {
	return d.update(id, func(account *AccountRecord) {
		account.TwoFactorSecret = secret
		account.TwoFactorEnabled = false
	})
}

func (d *mockDirectory) EnableTwoFactor(_ context.Context, id int64) error {
	return d.update(id, func(account *AccountRecord) {
		account.TwoFactorEnabled = true
	})
}

func (d *mockDirectory) DisableTwoFactor(_ context.Context, id int64) error {
	return d.update(id, func(account *AccountRecord) {
		account.TwoFactorSecret = nil
		account.TwoFactorEnabled = false
	})
}

func (d *mockDirectory) update(id int64, fn func(*AccountRecord)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	account, ok := d.accounts[id]
	if !ok {
		return ErrDirectoryNotFound
	}
	fn(&account)
	d.accounts[id] = account
	return nil
}

func (d *mockDirectory) mustGet(t *testing.T, id int64) AccountRecord {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	account, ok := d.accounts[id]
	if !ok {
		t.Fatalf("account %d not in directory", id)
	}
	return account
}

func (d *mockDirectory) patch(t *testing.T, id int64, fn func(*AccountRecord)) {
	t.Helper()
	if err := d.update(id, fn); err != nil {
		t.Fatalf("patch account %d: %v", id, err)
	}
}
