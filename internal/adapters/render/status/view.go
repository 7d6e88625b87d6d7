package status

import (
	"fmt"
	"time"

	"github.com/bnema/smartwallet-cli/internal/application"
	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"
)

type RenderOptions struct {
	Now time.Time
	// ChainID is shown in the header when set.
	ChainID uint64
}

func renderView(status application.Status, opts RenderOptions, s styles) string {
	header := "session: " + stateLabel(status.State)
	if opts.ChainID != 0 {
		header = fmt.Sprintf("chain %d, %s", opts.ChainID, header)
	}

	lines := []string{
		s.title.Render("Smart Account"),
		s.header.Render(header),
	}

	if status.Owner == (common.Address{}) && !status.HasAccount() {
		lines = append(lines, s.empty.Render("No wallet configured. Run `sw wallet import` or `sw wallet create`."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	lines = append(lines, s.section.Render(renderAccount(status, opts, s)))

	if len(status.Recent) > 0 {
		lines = append(lines, s.section.Render(renderRecent(status.Recent, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderAccount(status application.Status, opts RenderOptions, s styles) string {
	parts := []string{
		s.label.Render("owner:   ") + s.address.Render(addressOrNA(status.Owner)),
	}

	if status.HasAccount() {
		parts = append(parts,
			s.label.Render("account: ")+s.address.Render(status.Account.Hex()),
			s.label.Render("deployed:")+" "+deployedLabel(status.Deployed, s),
		)
	} else {
		parts = append(parts, s.label.Render("account: ")+s.empty.Render("not initialized"))
	}

	if status.LastError != "" {
		parts = append(parts, s.warning.Render("error: "+status.LastError))
	}
	if status.RetryPending {
		parts = append(parts, s.detail.Render(retryLine(status.NextBackoff)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderRecent(entries []domain.HistoryEntry, opts RenderOptions, s styles) string {
	parts := []string{s.detail.Render(fmt.Sprintf("recent operations: %d", len(entries)))}
	for _, entry := range entries {
		line := lipgloss.JoinHorizontal(
			lipgloss.Top,
			operationStatusStyle(entry.Status, s).Render(fmt.Sprintf("%-9s", entry.Status)),
			" ",
			s.hash.Render(ShortHash(entry.UserOpHash)),
			" ",
			s.meta.Render(fmt.Sprintf("%d call(s), %s", len(entry.Calls), formatAge(entry.SubmittedAt, opts.Now))),
		)
		if entry.Note != "" {
			line += " " + s.meta.Render(fmt.Sprintf("%q", entry.Note))
		}
		parts = append(parts, line)
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func stateLabel(state domain.SessionState) string {
	if state == "" {
		return string(domain.SessionUninitialized)
	}
	return string(state)
}

func addressOrNA(addr common.Address) string {
	if addr == (common.Address{}) {
		return "n/a"
	}
	return addr.Hex()
}

func deployedLabel(deployed *bool, s styles) string {
	switch {
	case deployed == nil:
		return s.empty.Render("unknown")
	case *deployed:
		return s.ok.Render("yes")
	default:
		return s.pending.Render("no (deploys with the first operation)")
	}
}

func retryLine(next time.Duration) string {
	if next <= 0 {
		return "retry scheduled"
	}
	return fmt.Sprintf("retry scheduled, next backoff %s", next)
}

func operationStatusStyle(status domain.OperationStatus, s styles) lipgloss.Style {
	switch status {
	case domain.OperationStatusSucceeded:
		return s.ok
	case domain.OperationStatusFailed:
		return s.warning
	default:
		return s.pending
	}
}

// ShortHash renders 0x1234…abcd style hashes for narrow terminals.
func ShortHash(hash common.Hash) string {
	hex := hash.Hex()
	if len(hex) <= 14 {
		return hex
	}
	return hex[:8] + "…" + hex[len(hex)-6:]
}

func formatAge(at, now time.Time) string {
	if at.IsZero() {
		return "unknown time"
	}
	if now.IsZero() {
		return at.UTC().Format(time.RFC3339)
	}

	age := now.Sub(at)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return plural(int(age.Minutes()), "minute") + " ago"
	case age < 24*time.Hour:
		return plural(int(age.Hours()), "hour") + " ago"
	default:
		return plural(int(age.Hours()/24), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
