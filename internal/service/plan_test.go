package service

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/subsync/subsync/internal/domain/processor"
	ierr "github.com/subsync/subsync/internal/errors"
	"github.com/subsync/subsync/internal/testutil"
	"github.com/subsync/subsync/internal/types"
)

type PlanServiceSuite struct {
	testutil.BaseServiceTestSuite
	planService PlanService
}

func TestPlanService(t *testing.T) {
	suite.Run(t, new(PlanServiceSuite))
}

func (s *PlanServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.planService = NewPlanService(newTestParams(&s.BaseServiceTestSuite))
}

func (s *PlanServiceSuite) TestSyncFromProcessor() {
	s.GetProcessor().AddPrice("price_basic", "prod_basic", 1000)
	s.GetProcessor().AddPrice("price_pro", "prod_pro", 2500)
	s.GetProcessor().AddPrice("price_pro_yearly", "prod_pro", 25000)

	resp, err := s.planService.SyncFromProcessor(s.GetContext())
	s.Require().NoError(err)
	s.Equal(3, resp.Synced)

	plans, err := s.planService.GetPlans(s.GetContext(), nil)
	s.Require().NoError(err)
	s.Require().Len(plans.Items, 3)
	s.Equal("price_basic", plans.Items[0].PriceID)
	s.Equal("10.00", plans.Items[0].DisplayAmount)
	s.Equal("month", plans.Items[0].Interval)
	s.True(plans.Items[0].Active)

	// a second import updates in place
	resp, err = s.planService.SyncFromProcessor(s.GetContext())
	s.Require().NoError(err)
	s.Equal(3, resp.Synced)
	s.Equal(3, s.GetStores().PlanRepo.(*testutil.InMemoryPlanStore).Len())
}

func (s *PlanServiceSuite) TestSyncFromProcessor_ListFails() {
	s.GetProcessor().FailOn("ListPrices", ierr.NewError("rate limited").Mark(ierr.ErrProcessor))

	_, err := s.planService.SyncFromProcessor(s.GetContext())
	s.True(ierr.IsProcessor(err))
}

func (s *PlanServiceSuite) TestUpsertFromPrice() {
	s.Run("expanded product", func() {
		p, err := s.planService.UpsertFromPrice(s.GetContext(), &processor.Price{
			ID:         "price_team",
			Product:    types.RefExpanded(processor.Product{ID: "prod_team", Name: "Team", Description: "For teams", Active: true}),
			UnitAmount: 4900,
			Currency:   "usd",
			Recurring:  &processor.Recurring{Interval: "month", TrialPeriodDays: 14},
			Active:     true,
		})
		s.Require().NoError(err)
		s.Equal("Team", p.Name)
		s.Equal("For teams", p.Description)
		s.Equal(int64(14), p.TrialPeriodDays)
		s.Zero(s.GetProcessor().Calls("RetrieveProduct"))
	})

	s.Run("product id is resolved through the processor", func() {
		s.GetProcessor().AddPrice("price_other", "prod_solo", 900)

		p, err := s.planService.UpsertFromPrice(s.GetContext(), &processor.Price{
			ID:         "price_solo",
			Product:    types.RefID[processor.Product]("prod_solo"),
			UnitAmount: 1900,
			Currency:   "usd",
			Active:     true,
		})
		s.Require().NoError(err)
		s.Equal("prod_solo", p.ProductID)
		s.Equal("prod_solo", p.Name)
		s.Equal(1, s.GetProcessor().Calls("RetrieveProduct"))
	})

	s.Run("update keeps the plan id", func() {
		before, err := s.GetStores().PlanRepo.GetByPriceID(s.GetContext(), "price_team")
		s.Require().NoError(err)

		after, err := s.planService.UpsertFromPrice(s.GetContext(), &processor.Price{
			ID:         "price_team",
			Product:    types.RefExpanded(processor.Product{ID: "prod_team", Name: "Team", Active: true}),
			UnitAmount: 5900,
			Currency:   "usd",
			Active:     true,
		})
		s.Require().NoError(err)
		s.Equal(before.ID, after.ID)
		s.Equal(int64(5900), after.Amount)
	})

	s.Run("missing id", func() {
		_, err := s.planService.UpsertFromPrice(s.GetContext(), &processor.Price{})
		s.True(ierr.IsValidation(err))
	})
}

func (s *PlanServiceSuite) TestDeactivatePriceAndApplyProduct() {
	s.GetProcessor().AddPrice("price_a", "prod_x", 1000)
	s.GetProcessor().AddPrice("price_b", "prod_x", 2000)
	_, err := s.planService.SyncFromProcessor(s.GetContext())
	s.Require().NoError(err)

	s.Require().NoError(s.planService.DeactivatePrice(s.GetContext(), "price_a"))
	s.Require().NoError(s.planService.DeactivatePrice(s.GetContext(), "price_unknown"))

	active := types.NewPlanFilter()
	active.ActiveOnly = true
	plans, err := s.planService.GetPlans(s.GetContext(), active)
	s.Require().NoError(err)
	s.Require().Len(plans.Items, 1)
	s.Equal("price_b", plans.Items[0].PriceID)

	s.Require().NoError(s.planService.ApplyProduct(s.GetContext(), &processor.Product{
		ID: "prod_x", Name: "Renamed", Description: "new copy", Active: true,
	}))
	renamed, err := s.GetStores().PlanRepo.GetByPriceID(s.GetContext(), "price_b")
	s.Require().NoError(err)
	s.Equal("Renamed", renamed.Name)
	s.Equal("new copy", renamed.Description)

	s.Require().NoError(s.planService.ApplyProduct(s.GetContext(), &processor.Product{ID: "prod_x", Deleted: true}))
	plans, err = s.planService.GetPlans(s.GetContext(), active)
	s.Require().NoError(err)
	s.Empty(plans.Items)

	// products without plans are not an error
	s.NoError(s.planService.ApplyProduct(s.GetContext(), &processor.Product{ID: "prod_new", Active: true}))
}

func (s *PlanServiceSuite) TestGetPlanUsesCache() {
	s.GetProcessor().AddPrice("price_a", "prod_x", 1000)
	_, err := s.planService.SyncFromProcessor(s.GetContext())
	s.Require().NoError(err)
	stored, err := s.GetStores().PlanRepo.GetByPriceID(s.GetContext(), "price_a")
	s.Require().NoError(err)

	first, err := s.planService.GetPlan(s.GetContext(), stored.ID)
	s.Require().NoError(err)
	s.True(first.Active)

	// a write through the service invalidates the cached plan
	s.Require().NoError(s.planService.DeactivatePrice(s.GetContext(), "price_a"))
	second, err := s.planService.GetPlan(s.GetContext(), stored.ID)
	s.Require().NoError(err)
	s.False(second.Active)

	_, err = s.planService.GetPlan(s.GetContext(), "plan_missing")
	s.True(ierr.IsNotFound(err))

	_, err = s.planService.GetPlan(s.GetContext(), "")
	s.True(ierr.IsValidation(err))
}
