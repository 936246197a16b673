package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"flockcore/internal/navigation"
	"flockcore/internal/payment"
	"flockcore/pkg/domain"
)

func (s *server) listFowls(c *gin.Context) {
	res := s.Repo.ListFowls(c.Request.Context(), c.Query("owner"))
	if !res.OK() {
		s.fail(c, res.Err())
		return
	}
	c.JSON(http.StatusOK, listResponse(res.Value()))
}

func (s *server) createFowl(c *gin.Context) {
	var req FowlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, err)
		return
	}
	f := req.toDomain("")
	if f.OwnerID == "" {
		f.OwnerID = c.GetHeader(OwnerHeader)
	}
	res := s.Repo.AddFowl(c.Request.Context(), f)
	if !res.OK() {
		s.fail(c, res.Err())
		return
	}
	c.JSON(http.StatusCreated, res.Value())
}

func (s *server) searchFowls(c *gin.Context) {
	var q SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.fail(c, err)
		return
	}
	res := s.Repo.SearchFowls(c.Request.Context(), q.Q)
	if !res.OK() {
		s.fail(c, res.Err())
		return
	}
	c.JSON(http.StatusOK, listResponse(res.Value()))
}

func (s *server) getFowl(c *gin.Context) {
	res := s.Repo.GetFowl(c.Request.Context(), c.Param("id"))
	if !res.OK() {
		s.fail(c, res.Err())
		return
	}
	c.JSON(http.StatusOK, res.Value())
}

func (s *server) updateFowl(c *gin.Context) {
	var req FowlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, err)
		return
	}
	existing, ok := s.ownedFowl(c)
	if !ok {
		return
	}
	f := req.toDomain(existing.ID)
	if f.OwnerID == "" {
		f.OwnerID = existing.OwnerID
	}
	f.ForSale = existing.ForSale
	f.AskingPrice = existing.AskingPrice
	res := s.Repo.UpdateFowl(c.Request.Context(), f)
	if !res.OK() {
		s.fail(c, res.Err())
		return
	}
	c.JSON(http.StatusOK, res.Value())
}

func (s *server) deleteFowl(c *gin.Context) {
	existing, ok := s.ownedFowl(c)
	if !ok {
		return
	}
	res := s.Repo.DeleteFowl(c.Request.Context(), existing.ID)
	if !res.OK() {
		s.fail(c, res.Err())
		return
	}
	c.Status(http.StatusNoContent)
}

// ownedFowl loads the fowl named by the :id param and checks that the caller
// in OwnerHeader owns it. Unowned birds accept any caller. On failure the
// response is already written.
func (s *server) ownedFowl(c *gin.Context) (domain.Fowl, bool) {
	got := s.Repo.GetFowl(c.Request.Context(), c.Param("id"))
	if !got.OK() {
		s.fail(c, got.Err())
		return domain.Fowl{}, false
	}
	f := got.Value()
	if f.OwnerID != "" && strings.TrimSpace(c.GetHeader(OwnerHeader)) != f.OwnerID {
		s.fail(c, navigation.ErrUnauthenticated)
		return domain.Fowl{}, false
	}
	return f, true
}

func (s *server) familyTree(c *gin.Context) {
	var q TreeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.fail(c, err)
		return
	}
	tree, err := s.Repo.FamilyTree(c.Request.Context(), c.Param("id"), q.Depth)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tree)
}

func (s *server) recommendations(c *gin.Context) {
	var q RecommendQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.fail(c, err)
		return
	}
	recs, err := s.Repo.RecommendMates(c.Request.Context(), c.Param("id"), q.Limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

// createListing charges the listing fee and marks the bird for sale. Only the
// owner named in OwnerHeader may list a bird. A zero fee skips the charge.
func (s *server) createListing(c *gin.Context) {
	if !s.Config.Features.Marketplace {
		s.fail(c, domain.PremiumRequired{Feature: "Marketplace"})
		return
	}
	var req ListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, err)
		return
	}
	ctx := c.Request.Context()
	owner := strings.TrimSpace(c.GetHeader(OwnerHeader))
	if owner == "" {
		s.fail(c, navigation.ErrUnauthenticated)
		return
	}
	got := s.Repo.GetFowl(ctx, c.Param("id"))
	if !got.OK() {
		s.fail(c, got.Err())
		return
	}
	f := got.Value()
	if f.OwnerID != owner {
		s.fail(c, navigation.ErrUnauthenticated)
		return
	}
	receipt, err := payment.Collect(ctx, s.Payments, payment.Charge{
		Amount:      payment.ListingFee(s.Config.Pricing),
		Currency:    s.Config.Pricing.Currency,
		Purpose:     payment.PurposeListing,
		Description: "Listing fee for " + f.Name,
		Reference:   f.ID,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	f.ForSale = true
	f.AskingPrice = req.AskingPrice
	updated := s.Repo.UpdateFowl(ctx, f)
	if !updated.OK() {
		s.log.Error("listing charged but not saved", zap.String("receipt", receipt.ID), zap.String("id", f.ID), zap.Error(updated.Err()))
		s.fail(c, updated.Err())
		return
	}
	c.JSON(http.StatusCreated, ListingResponse{
		Fowl:           updated.Value(),
		Receipt:        receipt,
		TransactionFee: payment.TransactionFee(s.Config.Pricing, req.AskingPrice),
	})
}

func (s *server) lifecycle(c *gin.Context) {
	stats, err := s.Repo.LifecycleAnalytics(c.Request.Context(), c.Query("owner"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *server) bloodline(c *gin.Context) {
	stats, err := s.Repo.BloodlineAnalytics(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *server) demoConfig(c *gin.Context) {
	cfg := s.Config
	delay, _ := cfg.PaymentDelay()
	c.JSON(http.StatusOK, DemoResponse{
		DemoMode:        cfg.Demo.Enabled,
		MockPayments:    cfg.Demo.MockPayments,
		PaymentMode:     cfg.PaymentMode(),
		PaymentDelayMS:  delay.Milliseconds(),
		Pricing:         cfg.Pricing,
		Features:        cfg.Features,
		OfflineFallback: cfg.Features.OfflineMode,
	})
}

func listResponse(fowls []domain.Fowl) ListResponse {
	if fowls == nil {
		fowls = []domain.Fowl{}
	}
	return ListResponse{Fowls: fowls, Count: len(fowls)}
}
