package memstore

import (
	"fmt"
	"time"

	"github.com/boddenberg/onsite-analytics-go/internal/domain"
	"github.com/boddenberg/onsite-analytics-go/internal/port"
)

// Demo dataset sizes.
const (
	SeedUsers          = 45
	SeedSessions       = 120
	SeedAutoSessions   = 80
	SeedActiveLocais   = 3
	SeedLoginsToday    = 12
	SeedLoginsBefore   = 20
	seedDeletedLocais  = 1
	seedSessionDaySpan = 20
)

var trades = []string{"eletricista", "encanador", "pedreiro", "carpinteiro", "pintor"}

// Seeded returns a store filled with a deterministic demo dataset relative
// to now: 45 users, 120 sessions (80 automatic), 3 active locations and 12
// logins today.
func Seeded(now time.Time) *Store {
	now = now.UTC()
	today := now.Truncate(24 * time.Hour)
	s := New()

	for i := 0; i < SeedUsers; i++ {
		nome := fmt.Sprintf("Usuário %02d", i)
		if i%9 == 0 {
			nome = ""
		}
		s.Insert(port.TableProfiles, port.Row{
			"id":              fmt.Sprintf("user-%02d", i),
			"email":           fmt.Sprintf("user%02d@onsite.app", i),
			"nome":            nullable(nome),
			"trade":           trades[i%len(trades)],
			"device_platform": []string{"ios", "android"}[i%2],
			"created_at":      ts(today.AddDate(0, 0, -7*i).Add(9 * time.Hour)),
		})
	}

	for i := 0; i < SeedActiveLocais+seedDeletedLocais; i++ {
		status := domain.LocalStatusActive
		if i >= SeedActiveLocais {
			status = "deleted"
		}
		s.Insert(port.TableLocais, port.Row{
			"id":     fmt.Sprintf("local-%d", i),
			"nome":   fmt.Sprintf("Obra %d", i),
			"status": status,
		})
	}

	for i := 0; i < SeedSessions; i++ {
		tipo := domain.TipoManual
		if i < SeedAutoSessions {
			tipo = domain.TipoAutomatico
		}
		created := today.AddDate(0, 0, -(i % seedSessionDaySpan)).Add(time.Duration(7+i%8) * time.Hour)
		if created.After(now) {
			created = now
		}
		var saida any
		if i%10 != 0 {
			saida = ts(created.Add(8 * time.Hour))
		}
		s.Insert(port.TableRegistros, port.Row{
			"id":         fmt.Sprintf("reg-%03d", i),
			"user_id":    fmt.Sprintf("user-%02d", i%SeedUsers),
			"local_id":   fmt.Sprintf("local-%d", i%SeedActiveLocais),
			"local_nome": fmt.Sprintf("Obra %d", i%SeedActiveLocais),
			"entrada":    ts(created),
			"saida":      saida,
			"tipo":       tipo,
			"created_at": ts(created),
		})
	}

	for i := 0; i < SeedLoginsToday; i++ {
		s.Insert(port.TableAppEvents, port.Row{
			"id":          fmt.Sprintf("evt-today-%02d", i),
			"user_id":     fmt.Sprintf("user-%02d", i%6),
			"event_type":  domain.EventLogin,
			"app_version": "2.4.0",
			"created_at":  ts(today.Add(time.Duration(i) * time.Second)),
		})
	}
	for i := 0; i < SeedLoginsBefore; i++ {
		s.Insert(port.TableAppEvents, port.Row{
			"id":          fmt.Sprintf("evt-old-%02d", i),
			"user_id":     fmt.Sprintf("user-%02d", i%15),
			"event_type":  domain.EventLogin,
			"app_version": "2.3.1",
			"created_at":  ts(today.AddDate(0, 0, -1-i)),
		})
		s.Insert(port.TableAppEvents, port.Row{
			"id":          fmt.Sprintf("evt-logout-%02d", i),
			"user_id":     fmt.Sprintf("user-%02d", i%15),
			"event_type":  "logout",
			"app_version": "2.3.1",
			"created_at":  ts(today.AddDate(0, 0, -1-i).Add(time.Hour)),
		})
	}

	for d := 0; d < 7; d++ {
		for u := 0; u < 3; u++ {
			s.Insert(port.TableTelemetry, port.Row{
				"id":                     fmt.Sprintf("tel-%d-%d", d, u),
				"user_id":                fmt.Sprintf("user-%02d", u),
				"date":                   today.AddDate(0, 0, -d).Format("2006-01-02"),
				"app_opens":              3 + u,
				"manual_entries_count":   1,
				"geofence_entries_count": 2,
				"geofence_triggers":      4,
				"geofence_accuracy_avg":  float64(10 + u),
				"sync_attempts":          10,
				"sync_failures":          u,
				"battery_level_avg":      0.8,
				"created_at":             ts(today.AddDate(0, 0, -d)),
			})
		}
	}

	return s
}

func ts(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
