package risk

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saveEval(t *testing.T, evals *fakeEvalStore, tenantID, oppID uuid.UUID, score float64) {
	t.Helper()
	require.NoError(t, evals.Save(context.Background(), &RiskEvaluation{
		TenantID:      tenantID,
		OpportunityID: oppID,
		Score:         score,
		RiskLevel:     LevelFor(score),
	}))
}

func TestService_RevenueAtRisk_TenantWide(t *testing.T) {
	f := newRiskFixture(t, Providers{})

	evaluated := f.opps.add(&Opportunity{TenantID: f.tenantID, DealValue: 100000})
	f.opps.add(&Opportunity{TenantID: f.tenantID, DealValue: 50000}) // never evaluated
	critical := f.opps.add(&Opportunity{TenantID: f.tenantID, DealValue: 200000})

	saveEval(t, f.evals, f.tenantID, evaluated.ID, 50)
	saveEval(t, f.evals, f.tenantID, critical.ID, 80)

	report, err := f.svc.RevenueAtRisk(context.Background(), f.tenantID, ScopeTenantWide, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, report.OpportunityCount)
	assert.Equal(t, 1, report.UnevaluatedCount)
	assert.Equal(t, float64(350000), report.TotalPipeline)
	// 100000*0.50 + 200000*0.80
	assert.InDelta(t, 210000, report.RevenueAtRisk, 1e-9)
	assert.Equal(t, map[RiskLevel]int{LevelHigh: 1, LevelCritical: 1}, report.ByLevel)
}

func TestService_RevenueAtRisk_UsesLatestEvaluation(t *testing.T) {
	f := newRiskFixture(t, Providers{})
	opp := f.opps.add(&Opportunity{TenantID: f.tenantID, DealValue: 100000})

	saveEval(t, f.evals, f.tenantID, opp.ID, 20)
	saveEval(t, f.evals, f.tenantID, opp.ID, 60)

	report, err := f.svc.RevenueAtRisk(context.Background(), f.tenantID, ScopeTenantWide, nil)
	require.NoError(t, err)

	assert.InDelta(t, 60000, report.RevenueAtRisk, 1e-9)
	assert.Equal(t, map[RiskLevel]int{LevelHigh: 1}, report.ByLevel)
}

func TestService_RevenueAtRisk_UserScope(t *testing.T) {
	f := newRiskFixture(t, Providers{})
	ownerID := uuid.New()

	mine := f.opps.add(&Opportunity{TenantID: f.tenantID, DealValue: 100000, OwnerID: &ownerID})
	otherOwner := uuid.New()
	f.opps.add(&Opportunity{TenantID: f.tenantID, DealValue: 999999, OwnerID: &otherOwner})
	f.opps.add(&Opportunity{TenantID: f.tenantID, DealValue: 999999}) // no owner

	saveEval(t, f.evals, f.tenantID, mine.ID, 40)

	report, err := f.svc.RevenueAtRisk(context.Background(), f.tenantID, ScopeUser, &ownerID)
	require.NoError(t, err)

	assert.Equal(t, 1, report.OpportunityCount)
	assert.Equal(t, float64(100000), report.TotalPipeline)
	assert.InDelta(t, 40000, report.RevenueAtRisk, 1e-9)
}

func TestService_RevenueAtRisk_TeamScope(t *testing.T) {
	f := newRiskFixture(t, Providers{})
	teamID := uuid.New()

	f.opps.add(&Opportunity{TenantID: f.tenantID, DealValue: 75000, TeamID: &teamID})
	f.opps.add(&Opportunity{TenantID: f.tenantID, DealValue: 25000})

	report, err := f.svc.RevenueAtRisk(context.Background(), f.tenantID, ScopeTeam, &teamID)
	require.NoError(t, err)

	assert.Equal(t, 1, report.OpportunityCount)
	assert.Equal(t, float64(75000), report.TotalPipeline)
	assert.Equal(t, 1, report.UnevaluatedCount)
}

func TestService_RevenueAtRisk_Validation(t *testing.T) {
	f := newRiskFixture(t, Providers{})
	scopeID := uuid.New()

	_, err := f.svc.RevenueAtRisk(context.Background(), f.tenantID, "galaxy", &scopeID)
	assert.Equal(t, 422, httpStatus(t, err))

	_, err = f.svc.RevenueAtRisk(context.Background(), f.tenantID, ScopeUser, nil)
	assert.Equal(t, 422, httpStatus(t, err))

	_, err = f.svc.RevenueAtRisk(context.Background(), f.tenantID, ScopeTeam, nil)
	assert.Equal(t, 422, httpStatus(t, err))
}

func TestService_RevenueAtRisk_EmptyPortfolio(t *testing.T) {
	f := newRiskFixture(t, Providers{})

	report, err := f.svc.RevenueAtRisk(context.Background(), f.tenantID, ScopeTenantWide, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, report.OpportunityCount)
	assert.Equal(t, float64(0), report.TotalPipeline)
	assert.NotNil(t, report.ByLevel)
}
