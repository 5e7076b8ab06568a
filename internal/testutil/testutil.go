// Package testutil provides shared helpers for package tests.
package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/zulandar/spellbook/internal/db"
	"github.com/zulandar/spellbook/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB returns a migrated in-memory SQLite database with the character
// row seeded. A single connection keeps the in-memory database alive.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "open test db")

	sqlDB, err := gdb.DB()
	require.NoError(t, err, "get sql db")
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Init(gdb), "init test db")
	return gdb
}

// SeedSpells inserts the given spells and returns them with IDs assigned.
func SeedSpells(t *testing.T, gdb *gorm.DB, spells ...models.Spell) []models.Spell {
	t.Helper()
	for i := range spells {
		require.NoError(t, gdb.Create(&spells[i]).Error, "seed spell %q", spells[i].Name)
	}
	return spells
}

// SampleSpells returns a small catalog covering levels, schools and flags.
func SampleSpells() []models.Spell {
	return []models.Spell{
		{Name: "Palla di Fuoco", Level: 3, School: "Invocazione", Components: "V, S, M (una minuscola palla di guano di pipistrello e zolfo)", Classes: "Mago, Stregone", URL: "https://example.test/palla-di-fuoco", Source: "test"},
		{Name: "Luce", Level: 0, School: "Invocazione", Components: "V, M (una lucciola)", Classes: "Bardo, Chierico, Mago, Stregone", URL: "https://example.test/luce", Source: "test"},
		{Name: "Individuazione del Magico", Level: 1, School: "Divinazione", Ritual: true, Concentration: true, Components: "V, S", Classes: "Bardo, Chierico, Druido, Mago, Paladino, Ranger, Stregone", URL: "https://example.test/individuazione-del-magico", Source: "test"},
		{Name: "Benedizione", Level: 1, School: "Ammaliamento", Concentration: true, Components: "V, S, M (una spruzzata di acqua santa)", Classes: "Chierico, Paladino", URL: "https://example.test/benedizione", Source: "test"},
		{Name: "Scudo", Level: 1, School: "Abiurazione", Components: "V, S", Classes: "Mago, Stregone", URL: "https://example.test/scudo", Source: "test"},
	}
}

// OpenRedis starts a miniredis server and returns a client connected to it.
func OpenRedis(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err, "start miniredis")
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}
