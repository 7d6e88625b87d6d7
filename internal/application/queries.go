package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/bnema/smartwallet-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
)

// Status is what `sw status` shows about the session and recent activity.
type Status struct {
	State        domain.SessionState
	Owner        common.Address
	Account      common.Address
	Deployed     *bool
	LastError    string
	RetryPending bool
	NextBackoff  time.Duration
	Recent       []domain.HistoryEntry
}

func (s Status) HasAccount() bool {
	return s.Account != (common.Address{})
}

type StatusQuery struct {
	session *SessionManager
	history ports.HistoryRepository
}

func NewStatusQuery(session *SessionManager, history ports.HistoryRepository) *StatusQuery {
	return &StatusQuery{session: session, history: history}
}

// Status initializes the session when possible and reports its state. A failed
// initialization is part of the report, not an error.
func (q *StatusQuery) Status(ctx context.Context, timeout time.Duration, recent int) (Status, error) {
	client, clientErr := q.session.GetClient(ctx, GetClientOptions{Timeout: timeout})

	snapshot := q.session.Snapshot()
	status := Status{
		State:        snapshot.State,
		Owner:        snapshot.Owner,
		RetryPending: snapshot.RetryPending,
		NextBackoff:  snapshot.NextBackoff,
	}
	if snapshot.LastError != nil {
		status.LastError = snapshot.LastError.Error()
	} else if clientErr != nil && !errors.Is(clientErr, domain.ErrNoOwnerWallet) {
		status.LastError = clientErr.Error()
	}

	if client != nil {
		status.Owner = client.Owner()
		status.Account = client.Address()
		deployed, err := client.IsDeployed(ctx)
		if err == nil {
			status.Deployed = &deployed
		} else if status.LastError == "" {
			status.LastError = fmt.Sprintf("check deployment: %v", err)
		}
	}

	if recent > 0 && q.history != nil {
		entries, err := q.history.List(ctx, recent)
		if err != nil {
			return status, fmt.Errorf("list history: %w", err)
		}
		status.Recent = entries
	}

	return status, nil
}
