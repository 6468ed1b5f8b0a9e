package controller

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"agentexecutor/src/connectors"
	"agentexecutor/src/gateway"
	"agentexecutor/src/model"
	"agentexecutor/src/repository"
	"agentexecutor/src/risk"
)

// ----- mocks -----

type mockGateway struct {
	mu sync.Mutex

	moduleEnabled  bool
	safeStats      *gateway.SafeStats
	whitelisted    bool
	allowance      *big.Int
	tradeAmountOut *big.Int
	tradeTxHash    string
	closeProceeds  *big.Int
	closeTxHash    string
	tokenBalance   *big.Int

	executeTradeCalls  int
	closeCalls         int
	initCalls          int
	whitelistCalls     int
	approveCalls       int
	lastTradeCall      gateway.TradeCall
	lastCloseCall      gateway.TradeCall
	moduleEnabledCalls int
}

func (m *mockGateway) IsModuleEnabled(ctx context.Context, safe, module common.Address) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moduleEnabledCalls++
	return m.moduleEnabled, nil
}

func (m *mockGateway) GetSafeStats(ctx context.Context, module, safe common.Address) (*gateway.SafeStats, error) {
	return m.safeStats, nil
}

func (m *mockGateway) InitializeCapital(ctx context.Context, module, safe common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initCalls++
	return nil
}

func (m *mockGateway) IsTokenWhitelisted(ctx context.Context, module, safe, token common.Address) (bool, error) {
	return m.whitelisted, nil
}

func (m *mockGateway) SetTokenWhitelist(ctx context.Context, module, safe, token common.Address, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.whitelistCalls++
	return nil
}

func (m *mockGateway) ApproveTokenForDex(ctx context.Context, module, safe, token, spender common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.approveCalls++
	return nil
}

func (m *mockGateway) TokenAllowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	return m.allowance, nil
}

func (m *mockGateway) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	return m.tokenBalance, nil
}

func (m *mockGateway) ExecuteTrade(ctx context.Context, module common.Address, call gateway.TradeCall) (*big.Int, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executeTradeCalls++
	m.lastTradeCall = call
	return m.tradeAmountOut, m.tradeTxHash, nil
}

func (m *mockGateway) ClosePosition(ctx context.Context, module common.Address, call gateway.TradeCall) (*big.Int, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalls++
	m.lastCloseCall = call
	return m.closeProceeds, m.closeTxHash, nil
}

type mockConnector struct {
	venue     model.Venue
	amountOut *big.Int
	summary   *connectors.ExecutionSummary
}

func (m *mockConnector) Venue() model.Venue { return m.venue }

func (m *mockConnector) Quote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*connectors.QuoteResult, error) {
	return &connectors.QuoteResult{AmountOut: m.amountOut, PoolFee: big.NewInt(3000)}, nil
}

func (m *mockConnector) BuildSwap(ctx context.Context, tokenIn, tokenOut common.Address, amountIn, minAmountOut *big.Int) (*connectors.SwapPlan, error) {
	return nil, nil
}

func (m *mockConnector) BuildCloseSwap(ctx context.Context, tokenIn, tokenOut common.Address, amountIn, minAmountOut *big.Int) (*connectors.SwapPlan, error) {
	return nil, nil
}

func (m *mockConnector) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return decimal.Zero, connectors.ErrPriceUnavailable
}

func (m *mockConnector) ExecutionSummary(ctx context.Context, signal *model.Signal, deployment *model.Deployment) (*connectors.ExecutionSummary, error) {
	return m.summary, nil
}

type mockValidator struct {
	verdict *risk.Verdict
}

func (m *mockValidator) ValidateTrade(ctx context.Context, signal *model.Signal, deployment *model.Deployment, summary *connectors.ExecutionSummary) (*risk.Verdict, error) {
	return m.verdict, nil
}

type emptyConstraintSource struct{}

func (emptyConstraintSource) FindConstraint(ctx context.Context, venue model.Venue, tokenSymbol string) (*model.VenueConstraint, error) {
	return nil, nil
}

type mockTokenSource struct {
	tokens map[string]*model.TokenRegistryEntry
}

func (m *mockTokenSource) FindToken(ctx context.Context, chainID int64, symbol string) (*model.TokenRegistryEntry, error) {
	return m.tokens[symbol], nil
}

type mockPositionStore struct {
	mu sync.Mutex

	existing *model.Position
	// singleWinner makes Create behave like the unique index: the first
	// insert wins, every later one loses.
	singleWinner bool
	createErr    error
	created      []*model.Position
	closeResult  bool
	closeCalls   int
	lastReason   string
	lastPnl      decimal.Decimal
}

func (m *mockPositionStore) Create(ctx context.Context, position *model.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if m.singleWinner && len(m.created) > 0 {
		return repository.ErrDuplicatePosition
	}
	position.ID = uint(len(m.created) + 1)
	m.created = append(m.created, position)
	return nil
}

func (m *mockPositionStore) FindByDeploymentAndSignal(ctx context.Context, deploymentID, signalID uint) (*model.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.existing, nil
}

func (m *mockPositionStore) Close(ctx context.Context, id uint, exitPrice, pnl decimal.Decimal, exitTxHash, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalls++
	m.lastReason = reason
	m.lastPnl = pnl
	return m.closeResult, nil
}

type mockDeploymentStore struct {
	deployment         *model.Deployment
	moduleFlagUpdates  []bool
	moduleFlagUpdateID uint
}

func (m *mockDeploymentStore) FindByID(ctx context.Context, id uint) (*model.Deployment, error) {
	return m.deployment, nil
}

func (m *mockDeploymentStore) UpdateModuleEnabled(ctx context.Context, id uint, enabled bool) error {
	m.moduleFlagUpdateID = id
	m.moduleFlagUpdates = append(m.moduleFlagUpdates, enabled)
	return nil
}

type mockSignalStore struct {
	markedID   uint
	intentHash string
	txHash     string
}

func (m *mockSignalStore) MarkExecuted(ctx context.Context, id uint, intentHash, txHash string) error {
	m.markedID = id
	m.intentHash = intentHash
	m.txHash = txHash
	return nil
}

type mockBillingStore struct {
	entries []*model.BillingLedgerEntry
}

func (m *mockBillingStore) RecordProfitShare(ctx context.Context, deploymentID, positionID uint, amount decimal.Decimal, txHash string) (*model.BillingLedgerEntry, error) {
	entry := &model.BillingLedgerEntry{DeploymentID: deploymentID, PositionID: positionID, Amount: amount, TxHash: txHash}
	m.entries = append(m.entries, entry)
	return entry, nil
}

// ----- fixtures -----

func testTokens() *mockTokenSource {
	return &mockTokenSource{tokens: map[string]*model.TokenRegistryEntry{
		"USDC": {ChainID: 42161, Symbol: "USDC", Address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", Decimals: 6},
		"WETH": {ChainID: 42161, Symbol: "WETH", Address: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1", Decimals: 18},
	}}
}

func testSignal() *model.Signal {
	return &model.Signal{
		ID:             100,
		AgentID:        1,
		TokenSymbol:    "WETH",
		Venue:          model.VenueSpot,
		Side:           model.SideBuy,
		SizeModelType:  model.SizeModelBalancePercentage,
		SizeModelValue: decimal.NewFromInt(5),
	}
}

func testDeployment() *model.Deployment {
	return &model.Deployment{
		ID:                 10,
		AgentID:            1,
		SafeWallet:         "0x00000000000000000000000000000000000000A1",
		ModuleAddress:      "0x00000000000000000000000000000000000000B2",
		ProfitReceiver:     "0x00000000000000000000000000000000000000C3",
		ModuleEnabled:      true,
		Status:             model.DeploymentStatusActive,
		SubscriptionActive: true,
	}
}

func weth(amount string) *big.Int {
	v, _ := new(big.Int).SetString(amount, 10)
	return v
}

type coordinatorFixture struct {
	coordinator *TradeCoordinator
	gateway     *mockGateway
	positions   *mockPositionStore
	deployments *mockDeploymentStore
	signals     *mockSignalStore
	billing     *mockBillingStore
}

func newFixture(gw *mockGateway, verdict *risk.Verdict) *coordinatorFixture {
	return newFixtureWithValidator(gw, &mockValidator{verdict: verdict})
}

func newFixtureWithValidator(gw *mockGateway, validator TradeValidator) *coordinatorFixture {
	positions := &mockPositionStore{closeResult: true}
	deployments := &mockDeploymentStore{deployment: testDeployment()}
	signals := &mockSignalStore{}
	billing := &mockBillingStore{}

	connector := &mockConnector{
		venue: model.VenueSpot,
		// 50 USDC in buys 0.025 WETH
		amountOut: weth("25000000000000000"),
		summary:   &connectors.ExecutionSummary{CanExecute: true, BaseBalance: decimal.NewFromInt(1000)},
	}
	provider := connectors.StaticConnectorProvider{model.VenueSpot: connector}

	coordinator := NewTradeCoordinator(
		gw,
		provider,
		validator,
		testTokens(),
		positions,
		deployments,
		signals,
		billing,
		nil,
		42161,
	)

	return &coordinatorFixture{
		coordinator: coordinator,
		gateway:     gw,
		positions:   positions,
		deployments: deployments,
		signals:     signals,
		billing:     billing,
	}
}

func readyGateway() *mockGateway {
	return &mockGateway{
		moduleEnabled:  true,
		safeStats:      &gateway.SafeStats{Initialized: true},
		whitelisted:    true,
		allowance:      big.NewInt(1),
		tradeAmountOut: weth("25000000000000000"),
		tradeTxHash:    "0xtrade",
	}
}

// ----- open -----

func TestOpenExecutesTradeAndPersistsPosition(t *testing.T) {
	fx := newFixture(readyGateway(), &risk.Verdict{Approved: true, Size: decimal.NewFromInt(50)})

	result, err := fx.coordinator.Open(context.Background(), testSignal(), testDeployment(), model.PositionSourceAuto)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != OpenExecuted {
		t.Fatalf("expected EXECUTED, got %s (%s)", result.Status, result.Reason)
	}
	if fx.gateway.executeTradeCalls != 1 {
		t.Fatalf("expected 1 trade call, got %d", fx.gateway.executeTradeCalls)
	}
	if len(fx.positions.created) != 1 {
		t.Fatalf("expected 1 position created, got %d", len(fx.positions.created))
	}

	position := fx.positions.created[0]
	if position.Qty.String() != "0.025" {
		t.Fatalf("expected qty from actual amount out, got %s", position.Qty)
	}
	if position.EntryPrice.String() != "2000" {
		t.Fatalf("expected entry price 2000, got %s", position.EntryPrice)
	}
	if position.EntryTxHash != "0xtrade" {
		t.Fatalf("expected entry tx recorded, got %s", position.EntryTxHash)
	}
	if !position.TrailingEnabled {
		t.Fatal("expected trailing enabled by default")
	}

	// amountIn = 50 USDC in base units
	if fx.gateway.lastTradeCall.AmountIn.Cmp(big.NewInt(50_000_000)) != 0 {
		t.Fatalf("unexpected amount in: %s", fx.gateway.lastTradeCall.AmountIn)
	}
	// minOut = quote * (10000 - 100) / 10000
	wantMinOut := weth("24750000000000000")
	if fx.gateway.lastTradeCall.MinAmountOut.Cmp(wantMinOut) != 0 {
		t.Fatalf("unexpected min out: %s", fx.gateway.lastTradeCall.MinAmountOut)
	}

	if fx.signals.markedID != 100 || fx.signals.txHash != "0xtrade" {
		t.Fatalf("expected provenance recorded, got %+v", fx.signals)
	}
	if fx.signals.intentHash == "" {
		t.Fatal("expected intent hash recorded")
	}
}

func TestOpenRejectedMakesNoGatewayWrites(t *testing.T) {
	fx := newFixture(readyGateway(), &risk.Verdict{Approved: false, Reason: risk.ReasonInsufficientBalance})

	result, err := fx.coordinator.Open(context.Background(), testSignal(), testDeployment(), model.PositionSourceAuto)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != OpenRejected || result.Reason != risk.ReasonInsufficientBalance {
		t.Fatalf("expected rejection, got %+v", result)
	}
	if fx.gateway.executeTradeCalls != 0 || fx.gateway.initCalls != 0 || fx.gateway.approveCalls != 0 {
		t.Fatal("rejected trade must not touch the chain")
	}
	if len(fx.positions.created) != 0 {
		t.Fatal("rejected trade must not create a position")
	}
}

func TestOpenModuleDisabledOnChainSkipsAndRefreshesCache(t *testing.T) {
	gw := readyGateway()
	gw.moduleEnabled = false
	fx := newFixture(gw, &risk.Verdict{Approved: true, Size: decimal.NewFromInt(50)})

	deployment := testDeployment()
	deployment.ModuleEnabled = true // stale cache

	result, err := fx.coordinator.Open(context.Background(), testSignal(), deployment, model.PositionSourceAuto)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != OpenSkipped || result.Reason != "ModuleDisabled" {
		t.Fatalf("expected ModuleDisabled skip, got %+v", result)
	}
	if len(fx.deployments.moduleFlagUpdates) != 1 || fx.deployments.moduleFlagUpdates[0] {
		t.Fatalf("expected cache refreshed to false, got %+v", fx.deployments.moduleFlagUpdates)
	}
	if fx.gateway.executeTradeCalls != 0 {
		t.Fatal("disabled module must not trade")
	}
}

func TestOpenExistingPositionIsAlreadyExecuted(t *testing.T) {
	fx := newFixture(readyGateway(), &risk.Verdict{Approved: true, Size: decimal.NewFromInt(50)})
	fx.positions.existing = &model.Position{ID: 7, DeploymentID: 10, SignalID: 100}

	result, err := fx.coordinator.Open(context.Background(), testSignal(), testDeployment(), model.PositionSourceAuto)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != OpenAlreadyExecuted {
		t.Fatalf("expected ALREADY_EXECUTED, got %s", result.Status)
	}
	if fx.gateway.executeTradeCalls != 0 {
		t.Fatal("duplicate signal must not trade again")
	}
}

func TestOpenInsertRaceLoserReportsAlreadyExecuted(t *testing.T) {
	fx := newFixture(readyGateway(), &risk.Verdict{Approved: true, Size: decimal.NewFromInt(50)})
	fx.positions.createErr = repository.ErrDuplicatePosition

	result, err := fx.coordinator.Open(context.Background(), testSignal(), testDeployment(), model.PositionSourceAuto)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != OpenAlreadyExecuted {
		t.Fatalf("expected ALREADY_EXECUTED for insert race loser, got %s", result.Status)
	}
}

func TestConcurrentOpensCreateExactlyOnePosition(t *testing.T) {
	const attempts = 8

	fx := newFixture(readyGateway(), &risk.Verdict{Approved: true, Size: decimal.NewFromInt(50)})
	fx.positions.singleWinner = true

	results := make([]*OpenResult, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := fx.coordinator.Open(context.Background(), testSignal(), testDeployment(), model.PositionSourceAuto)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			results[i] = result
		}(i)
	}
	wg.Wait()

	executed, alreadyExecuted := 0, 0
	for _, result := range results {
		switch {
		case result == nil:
		case result.Status == OpenExecuted:
			executed++
		case result.Status == OpenAlreadyExecuted:
			alreadyExecuted++
		default:
			t.Fatalf("unexpected status %s", result.Status)
		}
	}
	if executed != 1 {
		t.Fatalf("expected exactly one EXECUTED, got %d", executed)
	}
	if alreadyExecuted != attempts-1 {
		t.Fatalf("expected %d ALREADY_EXECUTED, got %d", attempts-1, alreadyExecuted)
	}
	if len(fx.positions.created) != 1 {
		t.Fatalf("expected exactly one position row, got %d", len(fx.positions.created))
	}
}

func TestOpenUnknownPairRejectedWithoutGatewayWrites(t *testing.T) {
	fx := newFixtureWithValidator(readyGateway(), risk.NewValidator(emptyConstraintSource{}))

	result, err := fx.coordinator.Open(context.Background(), testSignal(), testDeployment(), model.PositionSourceAuto)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != OpenRejected || result.Reason != risk.ReasonVenueUnavailable {
		t.Fatalf("expected VenueUnavailable rejection for unconstrained pair, got %+v", result)
	}
	if fx.gateway.executeTradeCalls != 0 || fx.gateway.initCalls != 0 || fx.gateway.approveCalls != 0 {
		t.Fatal("unconstrained pair must not touch the chain")
	}
	if len(fx.positions.created) != 0 {
		t.Fatal("unconstrained pair must not create a position")
	}
}

func TestOpenRunsSafeSetupWhenNeeded(t *testing.T) {
	gw := readyGateway()
	gw.safeStats = &gateway.SafeStats{Initialized: false}
	gw.whitelisted = false
	gw.allowance = big.NewInt(0)
	fx := newFixture(gw, &risk.Verdict{Approved: true, Size: decimal.NewFromInt(50)})

	result, err := fx.coordinator.Open(context.Background(), testSignal(), testDeployment(), model.PositionSourceAuto)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != OpenExecuted {
		t.Fatalf("expected EXECUTED, got %s", result.Status)
	}
	if fx.gateway.initCalls != 1 {
		t.Fatalf("expected capital initialization, got %d calls", fx.gateway.initCalls)
	}
	if fx.gateway.whitelistCalls != 2 {
		t.Fatalf("expected both tokens whitelisted, got %d calls", fx.gateway.whitelistCalls)
	}
	if fx.gateway.approveCalls != 2 {
		t.Fatalf("expected both tokens approved, got %d calls", fx.gateway.approveCalls)
	}
}

func TestOpenSkipsSetupWhenAlreadyDone(t *testing.T) {
	fx := newFixture(readyGateway(), &risk.Verdict{Approved: true, Size: decimal.NewFromInt(50)})

	if _, err := fx.coordinator.Open(context.Background(), testSignal(), testDeployment(), model.PositionSourceAuto); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fx.gateway.initCalls != 0 || fx.gateway.whitelistCalls != 0 || fx.gateway.approveCalls != 0 {
		t.Fatal("setup must be skipped when the Safe is already prepared")
	}
}

// ----- close -----

func TestCloseAlreadyClosedIsNoOp(t *testing.T) {
	fx := newFixture(readyGateway(), &risk.Verdict{Approved: true, Size: decimal.NewFromInt(50)})

	position := &model.Position{ID: 1, DeploymentID: 10, TokenSymbol: "WETH", Venue: model.VenueSpot}
	closedAt := time.Now().UTC()
	position.ClosedAt = &closedAt

	result, err := fx.coordinator.Close(context.Background(), position, model.CloseReasonManual, decimal.Zero)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != CloseAlreadyClosed {
		t.Fatalf("expected ALREADY_CLOSED, got %s", result.Status)
	}
	if fx.gateway.closeCalls != 0 {
		t.Fatal("already-closed position must not touch the chain")
	}
}

func TestCloseSwapsLiveBalanceAndRecordsPnl(t *testing.T) {
	gw := readyGateway()
	gw.tokenBalance = weth("25000000000000000")
	gw.closeProceeds = big.NewInt(60_000_000) // 60 USDC back
	gw.closeTxHash = "0xclose"
	fx := newFixture(gw, &risk.Verdict{Approved: true, Size: decimal.NewFromInt(50)})

	position := &model.Position{
		ID:           1,
		DeploymentID: 10,
		TokenSymbol:  "WETH",
		Venue:        model.VenueSpot,
		Side:         model.SideBuy,
		Qty:          decimal.RequireFromString("0.025"),
		EntryPrice:   decimal.NewFromInt(2000),
	}

	result, err := fx.coordinator.Close(context.Background(), position, model.CloseReasonTrailingStop, decimal.NewFromInt(2400))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != CloseClosed {
		t.Fatalf("expected CLOSED, got %s", result.Status)
	}
	if result.Pnl.String() != "10" {
		t.Fatalf("expected pnl 10, got %s", result.Pnl)
	}
	if fx.gateway.lastCloseCall.AmountIn.Cmp(gw.tokenBalance) != 0 {
		t.Fatal("close must swap the live balance, not the stored qty")
	}
	// entry value = 0.025 * 2000 = 50 USDC in base units
	if fx.gateway.lastCloseCall.EntryValue.Cmp(big.NewInt(50_000_000)) != 0 {
		t.Fatalf("unexpected entry value: %s", fx.gateway.lastCloseCall.EntryValue)
	}
	if fx.positions.lastReason != model.CloseReasonTrailingStop {
		t.Fatalf("unexpected close reason: %s", fx.positions.lastReason)
	}

	// profit share = 10 * 1000 / 10000 = 1 USDC mirrored in the ledger
	if len(fx.billing.entries) != 1 {
		t.Fatalf("expected 1 billing entry, got %d", len(fx.billing.entries))
	}
	if fx.billing.entries[0].Amount.String() != "1" {
		t.Fatalf("expected ledger amount 1, got %s", fx.billing.entries[0].Amount)
	}
}

func TestCloseUnprofitableSkipsBilling(t *testing.T) {
	gw := readyGateway()
	gw.tokenBalance = weth("25000000000000000")
	gw.closeProceeds = big.NewInt(40_000_000) // 40 USDC back, a loss
	gw.closeTxHash = "0xclose"
	fx := newFixture(gw, &risk.Verdict{Approved: true, Size: decimal.NewFromInt(50)})

	position := &model.Position{
		ID:           1,
		DeploymentID: 10,
		TokenSymbol:  "WETH",
		Venue:        model.VenueSpot,
		Side:         model.SideBuy,
		Qty:          decimal.RequireFromString("0.025"),
		EntryPrice:   decimal.NewFromInt(2000),
	}

	result, err := fx.coordinator.Close(context.Background(), position, model.CloseReasonStopLoss, decimal.NewFromInt(1600))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Pnl.String() != "-10" {
		t.Fatalf("expected pnl -10, got %s", result.Pnl)
	}
	if len(fx.billing.entries) != 0 {
		t.Fatal("losses must not produce billing entries")
	}
}

func TestCloseWithNoBalanceMarksClosedWithoutSwap(t *testing.T) {
	gw := readyGateway()
	gw.tokenBalance = big.NewInt(0)
	fx := newFixture(gw, &risk.Verdict{Approved: true, Size: decimal.NewFromInt(50)})

	position := &model.Position{
		ID:           1,
		DeploymentID: 10,
		TokenSymbol:  "WETH",
		Venue:        model.VenueSpot,
		Qty:          decimal.RequireFromString("0.025"),
		EntryPrice:   decimal.NewFromInt(2000),
	}

	result, err := fx.coordinator.Close(context.Background(), position, model.CloseReasonManual, decimal.Zero)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != CloseNothingToClose {
		t.Fatalf("expected NOTHING_TO_CLOSE, got %s", result.Status)
	}
	if fx.gateway.closeCalls != 0 {
		t.Fatal("empty balance must not swap")
	}
	if fx.positions.closeCalls != 1 {
		t.Fatal("position must still be marked closed")
	}
}
