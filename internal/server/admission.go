package server

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Grant is a token that passed admission. Key identifies the token without
// retaining it.
type Grant struct {
	Key  uint64
	Team uint8
}

func (g Grant) Label() string {
	return fmt.Sprintf("%016x", g.Key)
}

type tokenState struct {
	team   uint8
	active bool
	ready  bool
}

// Admission maps pre-shared tokens to teams. A token admits one connection at a
// time and becomes available again when it is released.
//
// With a secret configured, signed tickets (HS256, claims "tok" and "team") are
// accepted as well and register their token on first use.
type Admission struct {
	mu     sync.Mutex
	tokens map[uint64]*tokenState
	secret []byte
}

func NewAdmission(secret string) *Admission {
	a := &Admission{tokens: make(map[uint64]*tokenState)}
	if secret != "" {
		a.secret = []byte(secret)
	}
	return a
}

// Register adds a token for team.
func (a *Admission) Register(token string, team uint8) error {
	key := xxhash.Sum64String(token)

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.tokens[key]; ok {
		return ErrTokenDuplicate
	}
	a.tokens[key] = &tokenState{team: team}
	return nil
}

// Admit marks the token behind raw active. raw is either a registered token or,
// when a secret is configured, a signed ticket.
func (a *Admission) Admit(raw string) (Grant, error) {
	token, team, ticket, err := a.resolve(raw)
	if err != nil {
		return Grant{}, err
	}
	key := xxhash.Sum64String(token)

	a.mu.Lock()
	defer a.mu.Unlock()

	st, ok := a.tokens[key]
	if !ok {
		if !ticket {
			return Grant{}, ErrTokenUnknown
		}
		st = &tokenState{team: team}
		a.tokens[key] = st
	}
	if st.active {
		return Grant{}, ErrTokenActive
	}
	st.active = true
	st.ready = false
	return Grant{Key: key, Team: st.team}, nil
}

// Release makes the token available again.
func (a *Admission) Release(key uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	st, ok := a.tokens[key]
	if !ok || !st.active {
		return false
	}
	st.active = false
	st.ready = false
	return true
}

// MarkReady records that the holder of an active token is ready to play.
func (a *Admission) MarkReady(key uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if st, ok := a.tokens[key]; ok && st.active {
		st.ready = true
	}
}

// AllReady reports whether every known token is held by a ready player.
func (a *Admission) AllReady() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.tokens) == 0 {
		return false
	}
	for _, st := range a.tokens {
		if !st.active || !st.ready {
			return false
		}
	}
	return true
}

// Active returns the number of tokens currently in use.
func (a *Admission) Active() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for _, st := range a.tokens {
		if st.active {
			n++
		}
	}
	return n
}

func (a *Admission) resolve(raw string) (token string, team uint8, ticket bool, err error) {
	if a.secret == nil || strings.Count(raw, ".") != 2 {
		return raw, 0, false, nil
	}

	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", 0, false, fmt.Errorf("%w: %v", ErrTicketInvalid, err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return "", 0, false, ErrTicketInvalid
	}
	tok, _ := claims["tok"].(string)
	if tok == "" {
		return "", 0, false, fmt.Errorf("%w: missing token claim", ErrTicketInvalid)
	}
	t, ok := claims["team"].(float64)
	if !ok || t < 0 || t > 255 || t != float64(uint8(t)) {
		return "", 0, false, fmt.Errorf("%w: bad team claim", ErrTicketInvalid)
	}
	return tok, uint8(t), true, nil
}

// IssueTicket signs a ticket admitting token as team for ttl.
func IssueTicket(secret, token string, team uint8, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("%w: no secret", ErrTicketInvalid)
	}
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"tok":  token,
		"team": team,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	})
	return t.SignedString([]byte(secret))
}
