package main

import (
	"context"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"dexsta/pkg/config"
	"dexsta/pkg/db"
	"dexsta/pkg/domain"
	"dexsta/pkg/httpx"
	"dexsta/services/settlement/internal/admin"
	"dexsta/services/settlement/internal/authn"
	"dexsta/services/settlement/internal/market"
	"dexsta/services/settlement/internal/metrics"
	"dexsta/services/settlement/internal/operator"
	"dexsta/services/settlement/internal/permit"
	"dexsta/services/settlement/internal/registry"
	"dexsta/services/settlement/internal/store"
	"dexsta/services/settlement/internal/vault"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		panic(err)
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Str("service", "settlement").Logger()

	var ledger store.Ledger
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("database connect")
		}
		pg := store.NewPostgres(pool)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("ensure schema")
		}
		ledger = pg
		log.Info().Msg("using postgres ledger")
	} else {
		ledger = store.NewMemory()
		log.Warn().Msg("no DATABASE_URL, using in-memory ledger")
	}

	permits := permit.New(registry.LabelOwner)
	assets := registry.New(ledger, permits, log)
	operators := operator.New(ledger, permits, log)
	vaults := vault.New(ledger, permits, log)
	listings := market.New(ledger, permits, log)
	fees := admin.New(ledger, log)
	mx := metrics.New()

	srv := &server{
		ledger:    ledger,
		assets:    assets,
		operators: operators,
		vaults:    vaults,
		listings:  listings,
		fees:      fees,
		metrics:   mx,
		log:       log,
	}

	r := chi.NewRouter()
	r.Use(mx.Middleware)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Method(http.MethodGet, "/metrics", mx.Handler())

	r.Post("/auth/register", srv.handleRegister)

	r.Route("/xft", func(api chi.Router) {
		api.Post("/mint", srv.handleMint)
		api.Get("/{xft_id}", srv.handleGetAsset)
		api.Get("/{xft_id}/events", srv.handleEvents)
		api.Post("/{xft_id}/wrap", srv.handleWrap)
		api.Post("/{xft_id}/transfer", srv.handleTransfer)

		api.Post("/{xft_id}/operators", srv.handleGrantOperator)
		api.Get("/{xft_id}/operators/{operator}", srv.handleOperatorStatus)
		api.Delete("/{xft_id}/operators/{operator}", srv.handleRevokeOperator)
		api.Patch("/{xft_id}/operators/{operator}/limits", srv.handleEditLimits)
	})

	r.Route("/market", func(api chi.Router) {
		api.Post("/sell", srv.handleSell)
		api.Get("/{xft_id}", srv.handleGetListing)
		api.Post("/{xft_id}/cancel", srv.handleCancelSell)
		api.Post("/{xft_id}/edit", srv.handleEditSell)
		api.Post("/{xft_id}/buy", srv.handleBuy)
	})

	r.Route("/vault", func(api chi.Router) {
		api.Get("/{xft_id}", srv.handleGetVault)
		api.Post("/{xft_id}/create", srv.handleCreateVault)
		api.Post("/{xft_id}/lock", srv.handleLock)
		api.Post("/{xft_id}/withdraw/native", srv.handleWithdrawNative)
		api.Post("/{xft_id}/withdraw/token", srv.handleWithdrawToken)
		api.Post("/{xft_id}/withdraw/asset", srv.handleWithdrawAsset)
	})

	r.Route("/admin", func(api chi.Router) {
		api.Post("/initialize", srv.handleInitialize)
		api.Get("/fees", srv.handleGetFees)
		api.Post("/fees", srv.handleSetFees)
		api.Post("/payout", srv.handleSetPayout)
		api.Post("/token-authority", srv.handleSetTokenAuthority)
		api.Post("/deposit", srv.handleDeposit)
	})

	log.Info().Str("port", cfg.Port).Msg("listening")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

type server struct {
	ledger    store.Ledger
	assets    *registry.Engine
	operators *operator.Engine
	vaults    *vault.Engine
	listings  *market.Engine
	fees      *admin.Engine
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

// caller resolves the request's bearer token to a wallet address.
func (s *server) caller(w http.ResponseWriter, r *http.Request) (domain.Address, bool) {
	actor, err := authn.Identify(r.Context(), s.ledger, r.Header.Get("Authorization"))
	if err != nil {
		httpx.WriteDomainError(w, err)
		return domain.ZeroAddress, false
	}
	return actor, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil || id == 0 {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", name+" must be a positive integer", nil)
		return 0, false
	}
	return id, true
}

func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Wallet domain.Address `json:"wallet"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	token, err := authn.Register(r.Context(), s.ledger, req.Wallet)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"request_id": httpx.NewRequestID(),
		"wallet":     req.Wallet,
		"credentials": map[string]any{
			"token":      token,
			"token_hint": "store once; not retrievable again",
		},
	})
}

func (s *server) handleMint(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req registry.MintRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	id, err := s.assets.Mint(r.Context(), actor, req)
	s.metrics.Observe("mint", err)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"request_id": httpx.NewRequestID(), "xft_id": id})
}

func (s *server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "xft_id")
	if !ok {
		return
	}
	a, err := s.assets.Get(r.Context(), id)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"request_id": httpx.NewRequestID(), "xft": a})
}

func (s *server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "xft_id")
	if !ok {
		return
	}
	evs, err := s.assets.History(r.Context(), id)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"request_id": httpx.NewRequestID(), "events": evs})
}

func (s *server) handleWrap(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "xft_id")
	if !ok {
		return
	}
	wrappedID, err := s.assets.Wrap(r.Context(), actor, id)
	s.metrics.Observe("wrap", err)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"request_id": httpx.NewRequestID(), "wrapped_xft_id": wrappedID})
}

func (s *server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "xft_id")
	if !ok {
		return
	}
	var req struct {
		To domain.Address `json:"to"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	if req.To.IsZero() {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "to is required", nil)
		return
	}
	err := s.assets.Transfer(r.Context(), actor, id, req.To)
	s.metrics.Observe("transfer", err)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"request_id": httpx.NewRequestID(), "xft_id": id, "to": req.To})
}

func (s *server) handleGrantOperator(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "xft_id")
	if !ok {
		return
	}
	var req struct {
		Operator          domain.Address   `json:"operator"`
		License           uint64           `json:"license"`
		AccessExpires     uint64           `json:"access_expires"`
		Role              domain.GrantRole `json:"role"`
		MaxWithdraw       uint64           `json:"max_withdraw"`
		WithdrawEveryDays uint64           `json:"withdraw_every_days"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	if req.Operator.IsZero() {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "operator is required", nil)
		return
	}
	err := s.operators.Grant(r.Context(), actor, domain.OperatorGrant{
		Operator:          req.Operator,
		AssetID:           id,
		License:           req.License,
		AccessExpires:     req.AccessExpires,
		Role:              req.Role,
		MaxWithdraw:       req.MaxWithdraw,
		WithdrawEveryDays: req.WithdrawEveryDays,
	})
	s.metrics.Observe("operator_grant", err)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"request_id": httpx.NewRequestID(), "xft_id": id, "operator": req.Operator})
}

func (s *server) handleOperatorStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "xft_id")
	if !ok {
		return
	}
	opAddr := domain.Address(chi.URLParam(r, "operator"))
	st, err := s.operators.IsGranted(r.Context(), opAddr, id)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"request_id": httpx.NewRequestID(), "status": st})
}

func (s *server) handleRevokeOperator(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "xft_id")
	if !ok {
		return
	}
	opAddr := domain.Address(chi.URLParam(r, "operator"))
	err := s.operators.Revoke(r.Context(), actor, opAddr, id)
	s.metrics.Observe("operator_revoke", err)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"request_id": httpx.NewRequestID(), "xft_id": id, "operator": opAddr})
}

func (s *server) handleEditLimits(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "xft_id")
	if !ok {
		return
	}
	opAddr := domain.Address(chi.URLParam(r, "operator"))
	var req struct {
		WithdrawEveryDays uint64 `json:"withdraw_every_days"`
		MaxWithdraw       uint64 `json:"max_withdraw"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	err := s.operators.EditWithdrawLimits(r.Context(), actor, opAddr, id, req.WithdrawEveryDays, req.MaxWithdraw)
	s.metrics.Observe("operator_edit_limits", err)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"request_id": httpx.NewRequestID(), "xft_id": id, "operator": opAddr})
}

func (s *server) handleSell(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req market.SellRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	err := s.listings.Sell(r.Context(), actor, req)
	s.metrics.Observe("sell", err)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"request_id": httpx.NewRequestID(), "xft_id": req.AssetID})
}

func (s *server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "xft_id")
	if !ok {
		return
	}
	l, err := s.listings.Get(r.Context(), id)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"request_id": httpx.NewRequestID(), "listing": l})
}

func (s *server) handleCancelSell(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "xft_id")
	if !ok {
		return
	}
	err := s.listings.CancelSell(r.Context(), actor, id)
	s.metrics.Observe("cancel_sell", err)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"request_id": httpx.NewRequestID(), "xft_id": id})
}

func (s *server) handleEditSell(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "xft_id")
	if !ok {
		return
	}
	var req struct {
		Price     uint64           `json:"price"`
		PriceType domain.PriceType `json:"price_type"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	err := s.listings.EditSell(r.Context(), actor, id, req.Price, req.PriceType)
	s.metrics.Observe("edit_sell", err)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"request_id": httpx.NewRequestID(), "xft_id": id})
}

func (s *server) handleBuy(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "xft_id")
	if !ok {
		return
	}
	var req struct {
		Quantity uint64 `json:"quantity"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	rcpt, err := s.listings.Buy(r.Context(), actor, id, req.Quantity)
	s.metrics.Observe("buy", err)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	s.metrics.Purchases.Inc()
	s.metrics.FeesPaid.Add(float64(rcpt.LabelFee + rcpt.PlatformFee))
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"request_id": httpx.NewRequestID(), "receipt": rcpt})
}

func (s *server) handleGetVault(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "xft_id")
	if !ok {
		return
	}
	v, err := s.vaults.Get(r.Context(), id)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"request_id": httpx.NewRequestID(), "vault": v})
}

func (s *server) handleCreateVault(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "xft_id")
	if !ok {
		return
	}
	err := s.vaults.Create(r.Context(), actor, id)
	s.metrics.Observe("vault_create", err)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"request_id": httpx.NewRequestID(), "xft_id": id})
}

func (s *server) handleLock(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "xft_id")
	if !ok {
		return
	}
	var req struct {
		UnlockAt uint64 `json:"unlock_at"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	err := s.vaults.Lock(r.Context(), actor, id, req.UnlockAt)
	s.metrics.Observe("vault_lock", err)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"request_id": httpx.NewRequestID(), "xft_id": id, "unlock_at": req.UnlockAt})
}

func (s *server) handleWithdrawNative(w http.ResponseWriter, r *http.Request) {
	s.handleWithdrawFunds(w, r, "vault_withdraw_native", s.vaults.WithdrawNative)
}

func (s *server) handleWithdrawToken(w http.ResponseWriter, r *http.Request) {
	s.handleWithdrawFunds(w, r, "vault_withdraw_token", s.vaults.WithdrawToken)
}

func (s *server) handleWithdrawFunds(w http.ResponseWriter, r *http.Request, op string, withdraw func(context.Context, domain.Address, uint64, uint64) error) {
	actor, ok := s.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "xft_id")
	if !ok {
		return
	}
	var req struct {
		Amount uint64 `json:"amount"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	err := withdraw(r.Context(), actor, id, req.Amount)
	s.metrics.Observe(op, err)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"request_id": httpx.NewRequestID(), "xft_id": id, "amount": req.Amount})
}

func (s *server) handleWithdrawAsset(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "xft_id")
	if !ok {
		return
	}
	var req struct {
		HeldXftID uint64 `json:"held_xft_id"`
		Quantity  uint64 `json:"quantity"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	err := s.vaults.WithdrawAsset(r.Context(), actor, id, req.HeldXftID, req.Quantity)
	s.metrics.Observe("vault_withdraw_asset", err)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"request_id": httpx.NewRequestID(), "xft_id": id})
}

func (s *server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req domain.FeeSchedule
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	err := s.fees.Initialize(r.Context(), actor, req)
	s.metrics.Observe("admin_initialize", err)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"request_id": httpx.NewRequestID(), "fees": req})
}

func (s *server) handleGetFees(w http.ResponseWriter, r *http.Request) {
	fees, err := s.fees.Get(r.Context())
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"request_id": httpx.NewRequestID(), "fees": fees})
}

func (s *server) handleSetFees(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req struct {
		MintFeePerYear uint64 `json:"mint_fee_per_year"`
		NativeBps      uint64 `json:"native_bps"`
		TokenBps       uint64 `json:"token_bps"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	err := s.fees.SetFees(r.Context(), actor, req.MintFeePerYear, req.NativeBps, req.TokenBps)
	s.metrics.Observe("admin_set_fees", err)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"request_id": httpx.NewRequestID()})
}

func (s *server) handleSetPayout(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req struct {
		PayoutAddress domain.Address `json:"payout_address"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	err := s.fees.SetPayoutAddress(r.Context(), actor, req.PayoutAddress)
	s.metrics.Observe("admin_set_payout", err)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"request_id": httpx.NewRequestID()})
}

func (s *server) handleSetTokenAuthority(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req struct {
		TokenAuthority domain.Address `json:"token_authority"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	err := s.fees.SetTokenAuthority(r.Context(), actor, req.TokenAuthority)
	s.metrics.Observe("admin_set_token_authority", err)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"request_id": httpx.NewRequestID()})
}

// handleDeposit credits on-platform value to a wallet. It backs fiat and
// chain on-ramps; dev environments use it as a faucet.
func (s *server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Kind   domain.PaymentKind `json:"kind"`
		Owner  domain.Address     `json:"owner"`
		Amount uint64             `json:"amount"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	if !req.Kind.Valid() || req.Owner.IsZero() || req.Amount == 0 {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "kind, owner and amount are required", nil)
		return
	}
	err := s.ledger.WithinTx(r.Context(), func(tx store.Tx) error {
		return tx.Deposit(r.Context(), req.Kind, req.Owner, req.Amount)
	})
	s.metrics.Observe("admin_deposit", err)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	s.log.Info().Str("owner", string(req.Owner)).Uint64("amount", req.Amount).Str("actor", string(actor)).Msg("funds deposited")
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"request_id": httpx.NewRequestID(), "owner": req.Owner, "amount": req.Amount})
}
