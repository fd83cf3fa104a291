package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/dmitrijs2005/famwealth/internal/client/api"
)

// Status prints local session state. It makes no network call.
func (a *App) Status(_ context.Context) error {
	lines := []string{
		titleStyle.Render("famwealth"),
		field("Server", a.config.ServerURL),
		field("Store", a.config.StoreBackend),
	}

	snap := a.sessions.Snapshot()
	if !snap.IsAuthenticated() {
		lines = append(lines, field("Session", warnStyle.Render("not logged in")))
		fmt.Fprintln(a.out, strings.Join(lines, "\n"))
		return nil
	}

	lines = append(lines,
		field("User", fmt.Sprintf("%s (id %d)", snap.Principal.Email, snap.Principal.ID)),
		field("Phase", a.sessions.Phase().String()),
	)
	if exp, ok := snap.AccessExpiry(); ok {
		state := okStyle.Render("valid")
		if !exp.After(time.Now()) {
			state = warnStyle.Render("expired, renews on next request")
		}
		lines = append(lines, field("Access until", exp.Local().Format(time.DateTime)+" "+state))
	}
	fmt.Fprintln(a.out, strings.Join(lines, "\n"))
	return nil
}

// Whoami fetches the profile of the logged-in user.
func (a *App) Whoami(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	p, err := a.api.Profile(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, formatProfile(p))
	return nil
}

// Dashboard prints the holdings summary of one family.
func (a *App) Dashboard(ctx context.Context, familyID int64) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	d, err := a.api.Dashboard(ctx, familyID)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, formatDashboard(familyID, d))
	return nil
}

func formatProfile(p *api.Profile) string {
	active := okStyle.Render("active")
	if !p.Active {
		active = warnStyle.Render("inactive")
	}
	lines := []string{
		field("Email", p.Email),
		field("ID", strconv.FormatInt(p.ID, 10)),
		field("Account", active),
		field("Families", joinRefs(p.Families)),
		field("Permissions", joinRefs(p.Permissions)),
	}
	return strings.Join(lines, "\n")
}

func joinRefs(refs []api.Ref) string {
	if len(refs) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(refs))
	for _, r := range refs {
		parts = append(parts, fmt.Sprintf("%s (#%d)", r.Name, r.ID))
	}
	return strings.Join(parts, ", ")
}

var hundred = decimal.NewFromInt(100)

func formatDashboard(familyID int64, d *api.Dashboard) string {
	var b strings.Builder

	summary := strings.Join([]string{
		titleStyle.Render(fmt.Sprintf("Family #%d", familyID)),
		field("Total value", d.TotalValue.StringFixed(2)),
		field("Assets", strconv.Itoa(d.AssetCount)),
		field("Risk", fmt.Sprintf("%s (%s)", d.Risk.Score.String(), d.Risk.Classification)),
	}, "\n")
	b.WriteString(boxStyle.Render(summary))

	if len(d.Distribution) > 0 {
		b.WriteString("\n\n" + titleStyle.Render("By class") + "\n")
		for _, c := range d.Distribution {
			pct := d.Share(c).Mul(hundred).StringFixed(1)
			b.WriteString(field(c.Class, fmt.Sprintf("%12s  %5s%%", c.Value.StringFixed(2), pct)) + "\n")
		}
	}

	if len(d.TopAssets) > 0 {
		b.WriteString("\n" + titleStyle.Render("Top assets") + "\n")
		for _, as := range d.TopAssets {
			b.WriteString(field(as.Type, fmt.Sprintf("%-24s %12s", as.Name, as.Value.StringFixed(2))) + "\n")
		}
	}

	if len(d.Alerts) > 0 {
		b.WriteString("\n" + titleStyle.Render("Recent alerts") + "\n")
		for _, al := range d.Alerts {
			b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
				severityStyle(al.Severity).Render(fmt.Sprintf("[%s] ", al.Severity)),
				fmt.Sprintf("%s %s: %s", al.CreatedAt.Format(time.DateOnly), al.Kind, al.Message),
			) + "\n")
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func severityStyle(s string) lipgloss.Style {
	switch strings.ToLower(s) {
	case "high", "alta", "critical":
		return errStyle
	case "medium", "média", "media":
		return warnStyle
	default:
		return labelStyle.UnsetWidth()
	}
}
