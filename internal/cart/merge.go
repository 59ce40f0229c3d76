package cart

import (
	"context"

	"github.com/shopsense/storefront-backend/internal/identity"
	pkgerrors "github.com/shopsense/storefront-backend/pkg/errors"
	"github.com/shopsense/storefront-backend/pkg/types"
)

// Merge folds the guest cart into the user cart by summed quantity and leaves
// the guest cart empty. The guest lines are taken first with a conditional
// replace so two concurrent merges cannot both fold them; if folding fails the
// taken lines are put back.
func (s *service) Merge(ctx context.Context, user, guest identity.Identity) (*MergeResult, error) {
	if !user.IsUser() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !guest.IsGuest() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest_id must identify a guest session")
	}

	taken, err := s.takeGuestLines(ctx, guest)
	if err != nil {
		return nil, err
	}
	if len(taken) == 0 {
		cart, err := s.Get(ctx, user)
		if err != nil {
			return nil, err
		}
		return &MergeResult{Cart: cart}, nil
	}

	merged, err := s.mutate(ctx, user, true, func(lines types.CartLines) (types.CartLines, bool, error) {
		next, err := foldLines(lines, taken)
		return next, err == nil, err
	})
	if err != nil {
		s.restoreGuestLines(ctx, guest, taken)
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"identity":     user.String(),
			"guest":        guest.String(),
			"merged_lines": len(taken),
		})
		s.logg.Info(logCtx, "cart.merged")
	}
	return &MergeResult{Cart: s.present(ctx, merged), MergedLines: len(taken)}, nil
}

// takeGuestLines empties the guest cart and returns the lines it held. A
// missing or empty guest cart yields no lines.
func (s *service) takeGuestLines(ctx context.Context, guest identity.Identity) (types.CartLines, error) {
	var taken types.CartLines
	_, err := s.mutate(ctx, guest, false, func(lines types.CartLines) (types.CartLines, bool, error) {
		taken = lines
		return types.CartLines{}, len(lines) > 0, nil
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return taken, nil
}

func (s *service) restoreGuestLines(ctx context.Context, guest identity.Identity, lines types.CartLines) {
	_, err := s.mutate(ctx, guest, true, func(current types.CartLines) (types.CartLines, bool, error) {
		next, err := foldLines(current, lines)
		return next, err == nil, err
	})
	if err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithField(ctx, "guest", guest.String()), "cart.merge_restore_failed", err)
	}
}

// foldLines adds every line of src into dst, summing quantities on matching
// product ids. It fails when a summed line would exceed MaxLineQuantity.
func foldLines(dst, src types.CartLines) (types.CartLines, error) {
	out := dst.Clone()
	for _, line := range src {
		if line.Quantity <= 0 {
			continue
		}
		var err error
		if out, err = addQuantity(out, line.ProductID, line.Quantity); err != nil {
			return nil, err
		}
	}
	return out, nil
}
