package payments

import (
	"context"
	"strings"

	"github.com/brendonia/brendonia-backend/pkg/config"
	pkgerrors "github.com/brendonia/brendonia-backend/pkg/errors"
)

// Pack is one purchasable credit bundle or plan upgrade. Checkout is
// link-based: the gateway links are created in the PayEvo dashboard and the
// backend only hands out the right one per pack.
type Pack struct {
	ID          string
	Credits     int
	ActivatePro bool
	LinkEnv     string
}

// Grant is what a paid payment should apply to a profile.
type Grant struct {
	Credits     int
	ActivatePro bool
}

// Zero reports whether the grant carries nothing to apply.
func (g Grant) Zero() bool {
	return g.Credits == 0 && !g.ActivatePro
}

var packTable = []Pack{
	{ID: "p150", Credits: 150, LinkEnv: "BRENDONIA_PAYEVO_LINK_P150"},
	{ID: "p300", Credits: 300, LinkEnv: "BRENDONIA_PAYEVO_LINK_P300"},
	{ID: "p500", Credits: 500, LinkEnv: "BRENDONIA_PAYEVO_LINK_P500"},
	{ID: "pro", ActivatePro: true, LinkEnv: "BRENDONIA_PAYEVO_LINK_PRO"},
}

// CreateCheckoutInput is the dashboard's checkout request.
type CreateCheckoutInput struct {
	PackID     string `json:"pack_id" validate:"required"`
	PayerEmail string `json:"payer_email,omitempty" validate:"omitempty,email"`
}

// Checkout is the link handed back to the dashboard to open in a new tab.
type Checkout struct {
	CheckoutURL string
	PackID      string
}

// Service resolves packs to checkout links and payment descriptions to
// credit grants.
type Service interface {
	CreateCheckout(ctx context.Context, input CreateCheckoutInput) (*Checkout, error)
	PackByID(packID string) (Pack, bool)
	DeriveGrant(description string) Grant
}

// ServiceParams packages the dependencies for the payments service.
type ServiceParams struct {
	Payevo config.PayevoConfig
}

type service struct {
	cfg config.PayevoConfig
}

// NewService wires a payments service from the gateway configuration.
func NewService(params ServiceParams) (Service, error) {
	return &service{cfg: params.Payevo}, nil
}

func (s *service) CreateCheckout(_ context.Context, input CreateCheckoutInput) (*Checkout, error) {
	packID := strings.ToLower(strings.TrimSpace(input.PackID))
	if packID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeMissingPackID, "pack id is required")
	}

	email := strings.TrimSpace(input.PayerEmail)

	pack, ok := s.PackByID(packID)
	link := ""
	if ok {
		link = s.linkFor(pack)
	}
	if link == "" {
		missing := "PAYEVO_LINK_<PACK>"
		if ok {
			missing = pack.LinkEnv
		}
		return nil, pkgerrors.New(pkgerrors.CodeMissingData, "checkout link not configured").
			WithDetails(map[string]any{
				"details": map[string]any{
					"missing": missing,
					"received": map[string]any{
						"pack_id":     packID,
						"payer_email": email,
					},
				},
			})
	}

	return &Checkout{CheckoutURL: link, PackID: packID}, nil
}

func (s *service) PackByID(packID string) (Pack, bool) {
	id := strings.ToLower(strings.TrimSpace(packID))
	for _, pack := range packTable {
		if pack.ID == id {
			return pack, true
		}
	}
	return Pack{}, false
}

// DeriveGrant maps a gateway payment description to the credits or plan it
// bought. Credits and the pro upgrade are derived independently so a bundled
// description like "Plano Pro 300 creditos" grants both. Exact pack ids win
// for credits; otherwise keyword rules cover dashboard-named products.
func (s *service) DeriveGrant(description string) Grant {
	desc := strings.ToLower(strings.TrimSpace(description))
	if desc == "" {
		return Grant{}
	}

	grant := Grant{}
	for _, pack := range packTable {
		if pack.Credits > 0 && containsWord(desc, pack.ID) {
			grant.Credits = pack.Credits
			break
		}
	}
	if grant.Credits == 0 {
		switch {
		case strings.Contains(desc, "150") && strings.Contains(desc, "cr"):
			grant.Credits = 150
		case strings.Contains(desc, "300") && strings.Contains(desc, "cr"):
			grant.Credits = 300
		case strings.Contains(desc, "500") && strings.Contains(desc, "cr"):
			grant.Credits = 500
		}
	}
	if strings.Contains(desc, "pro") {
		grant.ActivatePro = true
	}
	return grant
}

func (s *service) linkFor(pack Pack) string {
	switch pack.ID {
	case "p150":
		return strings.TrimSpace(s.cfg.LinkP150)
	case "p300":
		return strings.TrimSpace(s.cfg.LinkP300)
	case "p500":
		return strings.TrimSpace(s.cfg.LinkP500)
	case "pro":
		return strings.TrimSpace(s.cfg.LinkPro)
	default:
		return ""
	}
}

// containsWord matches the pack id as a standalone token so an id embedded
// in a longer code like "vip150x" does not fire.
func containsWord(haystack, word string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isAlnum(haystack[start-1])
		afterOK := end == len(haystack) || !isAlnum(haystack[end])
		if beforeOK && afterOK {
			return true
		}
		idx = end
	}
}

func isAlnum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
