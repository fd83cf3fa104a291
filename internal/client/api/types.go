package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ref is an id/name pair.
type Ref struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Profile is the /auth/me response.
type Profile struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	Active      bool   `json:"active"`
	Families    []Ref  `json:"families"`
	Permissions []Ref  `json:"permissions"`
}

// Dashboard aggregates one family's holdings. Field names on the wire are
// the service's.
type Dashboard struct {
	TotalValue   decimal.Decimal `json:"valor_total"`
	AssetCount   int             `json:"num_ativos"`
	Distribution []ClassShare    `json:"distribuicao_classes"`
	TopAssets    []Asset         `json:"top_ativos"`
	Alerts       []Alert         `json:"alertas_recentes"`
	Risk         RiskScore       `json:"score_risco"`
}

type ClassShare struct {
	Class string          `json:"classe"`
	Value decimal.Decimal `json:"valor"`
}

type Asset struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
	Type  string          `json:"asset_type"`
}

type Alert struct {
	Kind      string    `json:"tipo"`
	Message   string    `json:"mensagem"`
	Severity  string    `json:"severidade"`
	CreatedAt Timestamp `json:"criado_em"`
}

type RiskScore struct {
	Score          decimal.Decimal `json:"score_global"`
	Classification string          `json:"classificacao_final"`
}

// Share returns the fraction of the total held in c, zero for an empty
// portfolio.
func (d *Dashboard) Share(c ClassShare) decimal.Decimal {
	if d.TotalValue.IsZero() {
		return decimal.Zero
	}
	return c.Value.Div(d.TotalValue)
}

// Timestamp accepts ISO-8601 with or without a zone, as the service emits
// naive datetimes.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		t.Time = time.Time{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return &time.ParseError{Layout: time.RFC3339, Value: s, Message: ": not a string"}
	}
	s = s[1 : len(s)-1]

	var err error
	for _, layout := range timestampLayouts {
		var parsed time.Time
		if parsed, err = time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return err
}
