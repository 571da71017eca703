package casesync

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/Gobusters/ectolinq"

	"github.com/Ramsey-B/advwell/pkg/datajud"
	"github.com/Ramsey-B/advwell/pkg/fingerprint"
	"github.com/Ramsey-B/advwell/pkg/models"
)

// saoPaulo is the zone DataJud reports local times in and the zone summaries are rendered in
var saoPaulo = loadSaoPaulo()

func loadSaoPaulo() *time.Location {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		return time.FixedZone("BRT", -3*60*60)
	}
	return loc
}

var zonedLayouts = []string{time.RFC3339Nano, time.RFC3339}

var localLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"20060102150405",
	"2006-01-02",
}

// ParseTimestamp parses a DataJud dataHora. Values without an offset are
// read as America/Sao_Paulo wall time.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, saoPaulo); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

// DescribeComplements renders complements as "nome: descricao" joined by "; ".
// Returns nil when there are none.
func DescribeComplements(complements []datajud.Complement) *string {
	if len(complements) == 0 {
		return nil
	}
	parts := ectolinq.Map(complements, func(c datajud.Complement) string {
		return c.Name + ": " + c.Description
	})
	description := strings.Join(parts, "; ")
	return &description
}

// NormalizeMovements converts DataJud movements into case movements. A movement
// whose timestamp cannot be parsed is returned in skipped and left out.
func NormalizeMovements(movements []datajud.Movement) (normalized []models.Movement, skipped []datajud.Movement) {
	normalized = make([]models.Movement, 0, len(movements))
	for _, m := range movements {
		date, err := ParseTimestamp(m.DateTime)
		if err != nil {
			skipped = append(skipped, m)
			continue
		}
		normalized = append(normalized, models.Movement{
			Code:        m.Code,
			Name:        m.Name,
			Date:        date,
			Description: DescribeComplements(m.Complements),
		})
	}
	return normalized, skipped
}

// LatestMovement returns the movement with the greatest date. On ties the
// earliest in the slice wins. Nil for an empty slice.
func LatestMovement(movements []models.Movement) *models.Movement {
	var latest *models.Movement
	for i := range movements {
		if latest == nil || movements[i].Date.After(latest.Date) {
			latest = &movements[i]
		}
	}
	return latest
}

// LatestMovementSummary formats the latest movement as "name - dd/mm/yyyy"
func LatestMovementSummary(movements []models.Movement) *string {
	latest := LatestMovement(movements)
	if latest == nil {
		return nil
	}
	summary := fmt.Sprintf("%s - %s", latest.Name, latest.Date.In(saoPaulo).Format("02/01/2006"))
	return &summary
}

// MovementsFingerprint hashes the movement set independent of order
func MovementsFingerprint(movements []models.Movement) string {
	items := ectolinq.Map(movements, func(m models.Movement) map[string]any {
		item := map[string]any{
			"code": m.Code,
			"name": m.Name,
			"date": m.Date.UTC().Format(time.RFC3339Nano),
		}
		if m.Description != nil {
			item["description"] = *m.Description
		}
		return item
	})
	return fingerprint.GenerateSet(items)
}
