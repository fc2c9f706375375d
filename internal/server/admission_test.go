package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmission_TokenLifecycle(t *testing.T) {
	a := NewAdmission("")
	require.NoError(t, a.Register("alpha", 1))
	assert.ErrorIs(t, a.Register("alpha", 2), ErrTokenDuplicate)

	_, err := a.Admit("zulu")
	assert.ErrorIs(t, err, ErrTokenUnknown)

	grant, err := a.Admit("alpha")
	require.NoError(t, err)
	assert.Equal(t, uint8(1), grant.Team)
	assert.Len(t, grant.Label(), 16)
	assert.Equal(t, 1, a.Active())

	_, err = a.Admit("alpha")
	assert.ErrorIs(t, err, ErrTokenActive)

	assert.True(t, a.Release(grant.Key))
	assert.False(t, a.Release(grant.Key))
	assert.Equal(t, 0, a.Active())

	again, err := a.Admit("alpha")
	require.NoError(t, err)
	assert.Equal(t, grant, again)
}

func TestAdmission_AllReady(t *testing.T) {
	a := NewAdmission("")
	assert.False(t, a.AllReady())

	require.NoError(t, a.Register("alpha", 1))
	require.NoError(t, a.Register("bravo", 2))

	ga, err := a.Admit("alpha")
	require.NoError(t, err)
	a.MarkReady(ga.Key)
	assert.False(t, a.AllReady())

	gb, err := a.Admit("bravo")
	require.NoError(t, err)
	a.MarkReady(gb.Key)
	assert.True(t, a.AllReady())

	a.Release(gb.Key)
	assert.False(t, a.AllReady())

	_, err = a.Admit("bravo")
	require.NoError(t, err)
	assert.False(t, a.AllReady(), "readiness does not survive a reconnect")
}

func TestAdmission_Tickets(t *testing.T) {
	const secret = "s3cret"
	a := NewAdmission(secret)

	ticket, err := IssueTicket(secret, "charlie", 3, time.Minute)
	require.NoError(t, err)

	grant, err := a.Admit(ticket)
	require.NoError(t, err)
	assert.Equal(t, uint8(3), grant.Team)

	_, err = a.Admit(ticket)
	assert.ErrorIs(t, err, ErrTokenActive)
	a.Release(grant.Key)

	// The ticket registered the plain token as well.
	plain, err := a.Admit("charlie")
	require.NoError(t, err)
	assert.Equal(t, grant.Key, plain.Key)
}

func TestAdmission_RejectsBadTickets(t *testing.T) {
	a := NewAdmission("s3cret")

	forged, err := IssueTicket("other", "charlie", 3, time.Minute)
	require.NoError(t, err)
	_, err = a.Admit(forged)
	assert.ErrorIs(t, err, ErrTicketInvalid)

	expired, err := IssueTicket("s3cret", "charlie", 3, -time.Minute)
	require.NoError(t, err)
	_, err = a.Admit(expired)
	assert.ErrorIs(t, err, ErrTicketInvalid)

	_, err = IssueTicket("", "charlie", 3, time.Minute)
	assert.ErrorIs(t, err, ErrTicketInvalid)

	// Without a secret a dotted string is just an unknown token.
	_, err = NewAdmission("").Admit(forged)
	assert.ErrorIs(t, err, ErrTokenUnknown)
}
