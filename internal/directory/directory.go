// Package directory selects candidate suppliers for a procurement request
// from the supplier registry.
package directory

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/procuroid/procurement-engine/internal/model"
	"github.com/procuroid/procurement-engine/internal/store"
)

// Service looks up suppliers able to serve a request.
type Service struct {
	store store.Store
}

// NewService creates a supplier directory backed by the store.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// FindSuppliers returns suppliers whose capabilities overlap the product
// description. When no supplier matches by capability, every supplier with a
// phone number is returned so a niche request still gets quotes.
func (s *Service) FindSuppliers(ctx context.Context, req model.ProcurementRequest) ([]model.Supplier, error) {
	all, err := s.store.ListSuppliers(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "directory: list suppliers")
	}

	keywords := keywords(req.ProductDescription)

	var matched, callable []model.Supplier
	for _, supplier := range all {
		if supplier.Phone == "" {
			continue
		}
		callable = append(callable, supplier)
		if matchesCapabilities(supplier.Capabilities, keywords) {
			matched = append(matched, supplier)
		}
	}

	if len(matched) == 0 {
		zap.L().Info("directory: no capability match, falling back to all callable suppliers",
			zap.String("product", req.ProductDescription),
			zap.Int("callable", len(callable)),
		)
		return callable, nil
	}
	return matched, nil
}

func matchesCapabilities(capabilities, keywords []string) bool {
	for _, cap := range capabilities {
		capLower := strings.ToLower(cap)
		for _, kw := range keywords {
			if strings.Contains(capLower, kw) || strings.Contains(kw, capLower) {
				return true
			}
		}
	}
	return false
}

func keywords(text string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:()[]\"'")
		if len(w) >= 3 {
			out = append(out, w)
		}
	}
	return out
}
