package rpc

import (
	"net/http"

	"liqmine/crypto"
	"liqmine/native/incentive"
)

type incentiveCreateParams struct {
	Caller      string `json:"caller"`
	RewardToken string `json:"rewardToken"`
	Pool        string `json:"pool"`
	StartTime   uint64 `json:"startTime"`
	EndTime     uint64 `json:"endTime"`
	MinDuration uint64 `json:"minDuration"`
	Refundee    string `json:"refundee"`
	Reward      string `json:"reward"`
}

type incentiveIDParams struct {
	ID uint64 `json:"id"`
}

type positionParams struct {
	Caller     string `json:"caller"`
	PositionID uint64 `json:"positionId"`
}

type withdrawParams struct {
	Caller     string `json:"caller"`
	PositionID uint64 `json:"positionId"`
	To         string `json:"to"`
}

type stakeParams struct {
	Caller      string `json:"caller"`
	IncentiveID uint64 `json:"incentiveId"`
	PositionID  uint64 `json:"positionId"`
}

type claimParams struct {
	Caller string `json:"caller"`
	Token  string `json:"token"`
	To     string `json:"to"`
	Amount string `json:"amount,omitempty"`
}

type ownerParams struct {
	Owner string `json:"owner"`
}

type balanceParams struct {
	Token string `json:"token"`
	Owner string `json:"owner"`
}

type addReferrerParams struct {
	Caller   string `json:"caller"`
	Account  string `json:"account"`
	Referrer string `json:"referrer"`
}

type referralRateParams struct {
	Caller string `json:"caller"`
	Tier   uint8  `json:"tier"`
	Bps    uint32 `json:"bps"`
}

type referralRootParams struct {
	Caller  string `json:"caller"`
	Account string `json:"account"`
	Root    bool   `json:"root"`
}

type recoverTokenParams struct {
	Caller string `json:"caller"`
	Token  string `json:"token"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type eventsParams struct {
	After uint64 `json:"after"`
	Limit int    `json:"limit"`
}

type incentiveJSON struct {
	ID                uint64 `json:"id"`
	RewardToken       string `json:"rewardToken"`
	Pool              string `json:"pool"`
	StartTime         uint64 `json:"startTime"`
	EndTime           uint64 `json:"endTime"`
	MinDuration       uint64 `json:"minDuration"`
	Refundee          string `json:"refundee"`
	RewardUnclaimed   string `json:"rewardUnclaimed"`
	ReferralUnclaimed string `json:"referralUnclaimed"`
	ClaimedX128       string `json:"claimedX128"`
	NumberOfStakes    uint32 `json:"numberOfStakes"`
}

type depositJSON struct {
	PositionID     uint64 `json:"positionId"`
	Owner          string `json:"owner"`
	NumberOfStakes uint32 `json:"numberOfStakes"`
	TickLower      int32  `json:"tickLower"`
	TickUpper      int32  `json:"tickUpper"`
}

type stakeJSON struct {
	PositionID  uint64 `json:"positionId"`
	IncentiveID uint64 `json:"incentiveId"`
	Liquidity   string `json:"liquidity"`
	AccX128     string `json:"accX128"`
	StartTime   uint64 `json:"startTime"`
}

func formatAddr(addr [20]byte) string {
	return crypto.MustNewAddress(addr).String()
}

func formatIncentive(record *incentive.Incentive) incentiveJSON {
	return incentiveJSON{
		ID:                record.ID,
		RewardToken:       record.Key.RewardToken,
		Pool:              formatAddr(record.Key.Pool),
		StartTime:         record.Key.StartTime,
		EndTime:           record.Key.EndTime,
		MinDuration:       record.Key.MinDuration,
		Refundee:          formatAddr(record.Key.Refundee),
		RewardUnclaimed:   record.TotalRewardUnclaimed.String(),
		ReferralUnclaimed: record.TotalReferralUnclaimed.String(),
		ClaimedX128:       record.TotalLiquidityTimeClaimedX128.String(),
		NumberOfStakes:    record.NumberOfStakes,
	}
}

func (s *Server) handleIncentiveCreate(w http.ResponseWriter, r *http.Request, req *RPCRequest) int {
	if rpcErr := s.requireAdminScope(r); rpcErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return http.StatusUnauthorized
	}
	var params incentiveCreateParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	pool, err := parseBech32Address(params.Pool)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	refundee, err := parseBech32Address(params.Refundee)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	reward, err := parsePositiveBigInt(params.Reward)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	key := incentive.IncentiveKey{
		RewardToken: params.RewardToken,
		Pool:        pool,
		StartTime:   params.StartTime,
		EndTime:     params.EndTime,
		MinDuration: params.MinDuration,
		Refundee:    refundee,
	}
	id, err := s.engine.CreateIncentive(caller, key, reward)
	if err != nil {
		return writeEngineError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]uint64{"id": id})
	return http.StatusOK
}

func (s *Server) handleIncentiveEnd(w http.ResponseWriter, req *RPCRequest) int {
	var params incentiveIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	refund, err := s.engine.EndIncentive(params.ID)
	if err != nil {
		return writeEngineError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]string{"refund": refund.String()})
	return http.StatusOK
}

func (s *Server) handleIncentiveGet(w http.ResponseWriter, req *RPCRequest) int {
	var params incentiveIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	record, err := s.engine.GetIncentive(params.ID)
	if err != nil {
		return writeEngineError(w, req.ID, err)
	}
	writeResult(w, req.ID, formatIncentive(record))
	return http.StatusOK
}

func (s *Server) handleTransferDeposit(w http.ResponseWriter, req *RPCRequest) int {
	var params positionParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	owner, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	if err := s.engine.TransferDeposit(owner, params.PositionID); err != nil {
		return writeEngineError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return http.StatusOK
}

func (s *Server) handleWithdrawPosition(w http.ResponseWriter, req *RPCRequest) int {
	var params withdrawParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	to := caller
	if params.To != "" {
		if to, err = parseBech32Address(params.To); err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
			return http.StatusBadRequest
		}
	}
	if err := s.engine.WithdrawPosition(caller, params.PositionID, to); err != nil {
		return writeEngineError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return http.StatusOK
}

func (s *Server) handleStake(w http.ResponseWriter, req *RPCRequest) int {
	var params stakeParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	if err := s.engine.Stake(caller, params.IncentiveID, params.PositionID); err != nil {
		return writeEngineError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return http.StatusOK
}

func (s *Server) handleUnstake(w http.ResponseWriter, req *RPCRequest) int {
	var params positionParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	if err := s.engine.Unstake(caller, params.PositionID); err != nil {
		return writeEngineError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return http.StatusOK
}

func (s *Server) handleClaim(w http.ResponseWriter, req *RPCRequest) int {
	var params claimParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	to := caller
	if params.To != "" {
		if to, err = parseBech32Address(params.To); err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
			return http.StatusBadRequest
		}
	}
	amount, err := parseOptionalBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	paid, err := s.engine.Claim(caller, params.Token, to, amount)
	if err != nil {
		return writeEngineError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]string{"paid": paid.String()})
	return http.StatusOK
}

func (s *Server) handleGetDeposit(w http.ResponseWriter, req *RPCRequest) int {
	var params positionParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	deposit, err := s.engine.GetDeposit(params.PositionID)
	if err != nil {
		return writeEngineError(w, req.ID, err)
	}
	writeResult(w, req.ID, depositJSON{
		PositionID:     deposit.PositionID,
		Owner:          formatAddr(deposit.Owner),
		NumberOfStakes: deposit.NumberOfStakes,
		TickLower:      deposit.TickLower,
		TickUpper:      deposit.TickUpper,
	})
	return http.StatusOK
}

func (s *Server) handleGetStake(w http.ResponseWriter, req *RPCRequest) int {
	var params positionParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	stake, err := s.engine.GetStake(params.PositionID)
	if err != nil {
		return writeEngineError(w, req.ID, err)
	}
	writeResult(w, req.ID, stakeJSON{
		PositionID:  stake.PositionID,
		IncentiveID: stake.IncentiveID,
		Liquidity:   stake.Liquidity.Unpack().Dec(),
		AccX128:     stake.LiquidityTimeAtStakeX128.String(),
		StartTime:   stake.StartTime,
	})
	return http.StatusOK
}

func (s *Server) handleDepositsByOwner(w http.ResponseWriter, req *RPCRequest) int {
	var params ownerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	owner, err := parseBech32Address(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	list, err := s.engine.DepositsByOwner(owner)
	if err != nil {
		return writeEngineError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string][]uint64{"positions": list})
	return http.StatusOK
}

func (s *Server) handleRewardBalance(w http.ResponseWriter, req *RPCRequest) int {
	var params balanceParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	owner, err := parseBech32Address(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	balance, err := s.engine.RewardBalanceOf(params.Token, owner)
	if err != nil {
		return writeEngineError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]string{"balance": balance.String()})
	return http.StatusOK
}

func (s *Server) handleAddReferrer(w http.ResponseWriter, r *http.Request, req *RPCRequest) int {
	var params addReferrerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	account, err := parseBech32Address(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	referrer, err := parseBech32Address(params.Referrer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	// Forced links ride the admin scope; self-service links do not.
	if caller != account {
		if rpcErr := s.requireAdminScope(r); rpcErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
			return http.StatusUnauthorized
		}
	}
	if err := s.engine.AddReferrer(caller, account, referrer); err != nil {
		return writeEngineError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return http.StatusOK
}

func (s *Server) handleReferrerOf(w http.ResponseWriter, req *RPCRequest) int {
	var params ownerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	account, err := parseBech32Address(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	referrer, ok, err := s.engine.ReferrerOf(account)
	if err != nil {
		return writeEngineError(w, req.ID, err)
	}
	result := map[string]interface{}{"linked": ok}
	if ok {
		result["referrer"] = formatAddr(referrer)
	}
	writeResult(w, req.ID, result)
	return http.StatusOK
}

func (s *Server) handleSetReferralRate(w http.ResponseWriter, r *http.Request, req *RPCRequest) int {
	if rpcErr := s.requireAdminScope(r); rpcErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return http.StatusUnauthorized
	}
	var params referralRateParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	if err := s.engine.SetReferralRate(caller, params.Tier, params.Bps); err != nil {
		return writeEngineError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return http.StatusOK
}

func (s *Server) handleSetReferralRoot(w http.ResponseWriter, r *http.Request, req *RPCRequest) int {
	if rpcErr := s.requireAdminScope(r); rpcErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return http.StatusUnauthorized
	}
	var params referralRootParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	account, err := parseBech32Address(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	if err := s.engine.SetReferralRoot(caller, account, params.Root); err != nil {
		return writeEngineError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return http.StatusOK
}

func (s *Server) handleRecoverToken(w http.ResponseWriter, r *http.Request, req *RPCRequest) int {
	if rpcErr := s.requireAdminScope(r); rpcErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return http.StatusUnauthorized
	}
	var params recoverTokenParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	to, err := parseBech32Address(params.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	}
	if err := s.engine.RecoverToken(caller, params.Token, to, amount); err != nil {
		return writeEngineError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return http.StatusOK
}

func (s *Server) handleEvents(w http.ResponseWriter, req *RPCRequest) int {
	params := eventsParams{}
	if len(req.Params) > 0 {
		if err := decodeParams(req, &params); err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
			return http.StatusBadRequest
		}
	}
	if s.events == nil {
		writeResult(w, req.ID, []StoredEvent{})
		return http.StatusOK
	}
	writeResult(w, req.ID, s.events.Events(params.After, params.Limit))
	return http.StatusOK
}
