package clientinfo

import (
	"log/slog"
	"net"

	"github.com/oschwald/maxminddb-golang"
)

// Locator maps addresses to countries with a MaxMind database. Without a
// database every lookup is empty.
type Locator struct {
	db *maxminddb.Reader
}

type geoResult struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

func OpenLocator(dbPath string) *Locator {
	if dbPath == "" {
		return &Locator{}
	}
	db, err := maxminddb.Open(dbPath)
	if err != nil {
		slog.Warn("clientinfo: failed to open geoip database, countries disabled", "path", dbPath, "error", err)
		return &Locator{}
	}
	slog.Info("clientinfo: loaded geoip database", "path", dbPath)
	return &Locator{db: db}
}

func (l *Locator) Country(ipStr string) string {
	if l == nil || l.db == nil || ipStr == "" {
		return ""
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return ""
	}
	var result geoResult
	if err := l.db.Lookup(ip, &result); err != nil {
		return ""
	}
	return result.Country.ISOCode
}

func (l *Locator) Close() error {
	if l != nil && l.db != nil {
		return l.db.Close()
	}
	return nil
}
