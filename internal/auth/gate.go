// Package auth gates every chat turn behind phone-based registration and a
// PIN login with lockout.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/zulandar/agenda/internal/calendar"
	"github.com/zulandar/agenda/internal/kv"
)

// Defaults.
const (
	DefaultMaxAttempts = 3
	DefaultLockout     = 15 * time.Minute
	DefaultTTL         = 7 * 24 * time.Hour
	MaxNameLength      = 60
)

var (
	// ErrLockedOut is returned while an account is cooling down after too
	// many bad PINs.
	ErrLockedOut = errors.New("auth: locked out")
	// ErrWrongPIN is returned when a well-formed PIN does not match.
	ErrWrongPIN = errors.New("auth: wrong pin")
	// ErrBadPIN is returned for PINs that are not 4 to 6 digits.
	ErrBadPIN = errors.New("auth: pin must be 4 to 6 digits")
)

func stateKey(phone string) string { return "auth:state:" + phone }

// Step is the pending input of an unauthenticated conversation.
type Step string

const (
	StepNone         Step = ""
	StepRegisterName Step = "register_name"
	StepRegisterPIN  Step = "register_pin"
	StepLoginPIN     Step = "login_pin"
)

// State is the persisted auth record for one phone.
type State struct {
	Phone          string     `json:"phone"`
	UserID         string     `json:"user_id,omitempty"`
	Authenticated  bool       `json:"authenticated"`
	FailedAttempts int        `json:"failed_attempts"`
	LockoutUntil   *time.Time `json:"lockout_until,omitempty"`
	Step           Step       `json:"step,omitempty"`
	TempName       string     `json:"temp_name,omitempty"`
}

// Outcome tells the caller what the gate did with a message.
type Outcome int

const (
	// Pass means the sender is authenticated and the message should be
	// dispatched.
	Pass Outcome = iota
	AskName
	InvalidName
	AskNewPIN
	InvalidPIN
	Registered
	AskPIN
	WrongPIN
	LoggedIn
	LockedOut
)

var outcomeNames = map[Outcome]string{
	Pass:        "pass",
	AskName:     "ask_name",
	InvalidName: "invalid_name",
	AskNewPIN:   "ask_new_pin",
	InvalidPIN:  "invalid_pin",
	Registered:  "registered",
	AskPIN:      "ask_pin",
	WrongPIN:    "wrong_pin",
	LoggedIn:    "logged_in",
	LockedOut:   "locked_out",
}

func (o Outcome) String() string { return outcomeNames[o] }

// Result is the outcome of one gated message.
type Result struct {
	Outcome   Outcome
	UserID    string
	Name      string    // set on Registered
	Remaining int       // attempts left, set on WrongPIN
	Until     time.Time // set on LockedOut
	Err       error     // classified cause for WrongPIN, InvalidPIN and LockedOut
}

// GateOpts holds parameters for creating a Gate.
type GateOpts struct {
	DB          *gorm.DB
	KV          kv.Store
	MaxAttempts int
	Lockout     time.Duration
	TTL         time.Duration
	Timezone    string // stored on newly registered users
	HashCost    int
	Now         func() time.Time
	Logger      *zap.Logger
}

// Gate runs the registration and login state machine.
type Gate struct {
	db          *gorm.DB
	kv          kv.Store
	maxAttempts int
	lockout     time.Duration
	ttl         time.Duration
	timezone    string
	hashCost    int
	now         func() time.Time
	logger      *zap.Logger
}

// NewGate creates a Gate.
func NewGate(opts GateOpts) (*Gate, error) {
	if opts.DB == nil {
		return nil, errors.New("auth: db is required")
	}
	if opts.KV == nil {
		return nil, errors.New("auth: kv store is required")
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Lockout <= 0 {
		opts.Lockout = DefaultLockout
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Gate{
		db:          opts.DB,
		kv:          opts.KV,
		maxAttempts: opts.MaxAttempts,
		lockout:     opts.Lockout,
		ttl:         opts.TTL,
		timezone:    opts.Timezone,
		hashCost:    opts.HashCost,
		now:         opts.Now,
		logger:      opts.Logger,
	}, nil
}

// Check advances the auth state machine for phone with the message text.
// Only a Pass result lets the message through.
func (g *Gate) Check(ctx context.Context, phone, text string) (Result, error) {
	st, err := g.load(ctx, phone)
	if err != nil {
		return Result{}, err
	}
	now := g.now()
	if st.LockoutUntil != nil && now.Before(*st.LockoutUntil) {
		return Result{Outcome: LockedOut, Until: *st.LockoutUntil, Err: ErrLockedOut}, nil
	}
	if st.Authenticated && st.UserID != "" {
		if err := g.kv.Expire(ctx, stateKey(phone), g.ttl); err != nil {
			g.logger.Warn("auth ttl refresh failed", zap.String("phone", phone), zap.Error(err))
		}
		return Result{Outcome: Pass, UserID: st.UserID}, nil
	}
	text = strings.TrimSpace(text)

	switch st.Step {
	case StepRegisterName:
		if text == "" || utf8.RuneCountInString(text) > MaxNameLength {
			return Result{Outcome: InvalidName}, nil
		}
		st.TempName = text
		st.Step = StepRegisterPIN
		return Result{Outcome: AskNewPIN}, g.save(ctx, st, g.ttl)

	case StepRegisterPIN:
		if !validPIN(text) {
			return Result{Outcome: InvalidPIN, Err: ErrBadPIN}, nil
		}
		return g.register(ctx, st, text)

	case StepLoginPIN:
		return g.login(ctx, st, text, now)
	}

	user, err := calendar.UserByPhone(g.db.WithContext(ctx), phone)
	switch {
	case errors.Is(err, calendar.ErrNotFound):
		st = &State{Phone: phone, Step: StepRegisterName}
		return Result{Outcome: AskName}, g.save(ctx, st, g.ttl)
	case err != nil:
		return Result{}, err
	}
	st = &State{Phone: phone, UserID: user.ID, Step: StepLoginPIN}
	return Result{Outcome: AskPIN}, g.save(ctx, st, g.ttl)
}

func (g *Gate) register(ctx context.Context, st *State, pin string) (Result, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), g.hashCost)
	if err != nil {
		return Result{}, fmt.Errorf("auth: hash pin: %w", err)
	}
	user, err := calendar.CreateUser(g.db.WithContext(ctx), st.Phone, st.TempName, string(hash), g.timezone)
	if err != nil {
		return Result{}, err
	}
	next := &State{Phone: st.Phone, UserID: user.ID, Authenticated: true}
	if err := g.save(ctx, next, g.ttl); err != nil {
		return Result{}, err
	}
	g.logger.Info("user registered", zap.String("user_id", user.ID))
	return Result{Outcome: Registered, UserID: user.ID, Name: user.Name}, nil
}

func (g *Gate) login(ctx context.Context, st *State, pin string, now time.Time) (Result, error) {
	if !validPIN(pin) {
		return Result{Outcome: InvalidPIN, Err: ErrBadPIN}, nil
	}
	user, err := calendar.GetUser(g.db.WithContext(ctx), st.UserID)
	if err != nil {
		if errors.Is(err, calendar.ErrNotFound) {
			// The account vanished; start over.
			return Result{Outcome: AskName}, g.save(ctx, &State{Phone: st.Phone, Step: StepRegisterName}, g.ttl)
		}
		return Result{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PinHash), []byte(pin)) == nil {
		next := &State{Phone: st.Phone, UserID: user.ID, Authenticated: true}
		if err := g.save(ctx, next, g.ttl); err != nil {
			return Result{}, err
		}
		return Result{Outcome: LoggedIn, UserID: user.ID}, nil
	}

	st.FailedAttempts++
	if st.FailedAttempts >= g.maxAttempts {
		until := now.Add(g.lockout)
		locked := &State{Phone: st.Phone, LockoutUntil: &until}
		if err := g.save(ctx, locked, g.lockout); err != nil {
			return Result{}, err
		}
		g.logger.Warn("account locked", zap.String("user_id", user.ID), zap.Time("until", until))
		return Result{Outcome: LockedOut, Until: until, Err: ErrLockedOut}, nil
	}
	if err := g.save(ctx, st, g.ttl); err != nil {
		return Result{}, err
	}
	return Result{Outcome: WrongPIN, Remaining: g.maxAttempts - st.FailedAttempts, Err: ErrWrongPIN}, nil
}

// Logout clears the phone's auth record. The next message starts a login.
func (g *Gate) Logout(ctx context.Context, phone string) error {
	if err := g.kv.Del(ctx, stateKey(phone)); err != nil {
		return fmt.Errorf("auth: logout: %w", err)
	}
	return nil
}

// State returns the stored auth record for phone, or a fresh one.
func (g *Gate) State(ctx context.Context, phone string) (*State, error) {
	return g.load(ctx, phone)
}

func (g *Gate) load(ctx context.Context, phone string) (*State, error) {
	raw, err := g.kv.Get(ctx, stateKey(phone))
	if kv.IsNotFound(err) {
		return &State{Phone: phone}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("auth: load state: %w", err)
	}
	var st State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		g.logger.Warn("dropping corrupt auth state", zap.String("phone", phone), zap.Error(err))
		return &State{Phone: phone}, nil
	}
	st.Phone = phone
	return &st, nil
}

func (g *Gate) save(ctx context.Context, st *State, ttl time.Duration) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("auth: encode state: %w", err)
	}
	if err := g.kv.Set(ctx, stateKey(st.Phone), string(data), ttl); err != nil {
		return fmt.Errorf("auth: save state: %w", err)
	}
	return nil
}

func validPIN(s string) bool {
	if len(s) < 4 || len(s) > 6 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
