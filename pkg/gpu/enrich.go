// Implements the PCI card-inventory enrichment: rocm-smi
// reports a card's marketing name but never its PCI vendor/device id.
// This fills VendorID/DeviceID in on a best-effort, best-match basis
// using the system PCI ID database; it never changes a Card's Model or
// memory fields and never turns a successful probe into an error.
package gpu

import (
	"strings"
	"sync"

	"github.com/jaypipes/pcidb"

	"github.com/hpcsonar/sonar/pkg/model"
)

// amdVendorID is AMD/ATI's PCI vendor id, used to scope the product
// search to GPU-relevant entries instead of the entire PCI ID database.
const amdVendorID = "1002"

var (
	pciOnce sync.Once
	pciDB   *pcidb.PCIDB
)

func loadPCIDatabase() *pcidb.PCIDB {
	pciOnce.Do(func() {
		pciDB, _ = pcidb.New()
	})
	return pciDB
}

// EnrichAMDCards fills VendorID/DeviceID on cards whose Model can be
// matched, case-insensitively, against an AMD PCI product name. Cards
// with no match, or when the database is unavailable, are returned
// unchanged.
func EnrichAMDCards(cards []model.Card) []model.Card {
	db := loadPCIDatabase()
	if db == nil {
		return cards
	}
	vendor, ok := db.Vendors[amdVendorID]
	if !ok || vendor == nil {
		return cards
	}

	out := make([]model.Card, len(cards))
	for i, c := range cards {
		out[i] = c
		if c.Model == "" {
			continue
		}
		if deviceID, ok := matchProductByName(vendor, c.Model); ok {
			out[i].VendorID = amdVendorID
			out[i].DeviceID = deviceID
		}
	}
	return out
}

func matchProductByName(vendor *pcidb.Vendor, model string) (deviceID string, ok bool) {
	needle := strings.ToLower(strings.TrimSpace(model))
	if needle == "" {
		return "", false
	}
	for _, product := range vendor.Products {
		if product == nil || product.Name == "" {
			continue
		}
		name := strings.ToLower(product.Name)
		if strings.Contains(name, needle) || strings.Contains(needle, name) {
			return product.ID, true
		}
	}
	return "", false
}
