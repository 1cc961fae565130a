package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"

	"github.com/ssargent/dblog/pkg/chainindex"
	"github.com/ssargent/dblog/pkg/codec"
	"github.com/ssargent/dblog/pkg/ledger"
	"github.com/ssargent/dblog/pkg/logging"
	"github.com/ssargent/dblog/pkg/program"
	"github.com/ssargent/dblog/pkg/query"
)

const maxRequestBody = 64 << 10

// Server holds the API server state
type Server struct {
	program IRecordProgram
	index   IChainIndex
	query   query.QueryEngine
	payer   ledger.Pubkey
	config  ServerConfig
	metrics *Metrics
	log     *logging.Logger
}

// NewServer creates a new API server. Records are created with payer as
// the signing fee payer.
func NewServer(prog IRecordProgram, index IChainIndex, payer ledger.Pubkey, config ServerConfig, metrics *Metrics, log *logging.Logger) *Server {
	if metrics == nil {
		metrics = NewMetrics()
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Server{
		program: prog,
		index:   index,
		query:   query.NewRecordQueryEngine(index),
		payer:   payer,
		config:  config,
		metrics: metrics,
		log:     log.Child("api"),
	}
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleCreateRecord runs an Initialize instruction. The record address is
// derived from the nonce and the node's payer key.
func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req CreateRecordRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.metrics.RecordInstruction("initialize", CodeInvalidRequest, time.Since(start))
		sendError(w, "Invalid JSON in request body", CodeInvalidRequest, http.StatusBadRequest)
		return
	}

	accounts, err := s.accountsFor(&req)
	if err != nil {
		code := sendFailure(w, r, err)
		s.metrics.RecordInstruction("initialize", code, time.Since(start))
		return
	}

	res, err := s.program.Initialize(r.Context(), accounts, program.InitializeArgs{
		Nonce:       req.Nonce,
		ContentURI:  req.ContentURI,
		Title:       req.Title,
		Encrypted:   req.Encrypted,
		EncryptHint: req.EncryptHint,
	})
	if err != nil {
		code := sendFailure(w, r, err)
		s.metrics.RecordInstruction("initialize", code, time.Since(start))
		return
	}

	s.metrics.RecordInstruction("initialize", statusSuccess, time.Since(start))
	sendCreated(w, CreateRecordResponse{
		RecordResponse: RecordResponse{Address: res.Address, Record: res.Record},
		TxID:           res.Receipt.TxID.String(),
	})
}

func (s *Server) accountsFor(req *CreateRecordRequest) (program.InitializeAccounts, error) {
	accounts := program.InitializeAccounts{Owner: s.payer, Payer: s.payer}

	if req.Owner != "" {
		owner, err := ledger.ParsePubkey(req.Owner)
		if err != nil {
			return accounts, errors.Wrap(err, "owner")
		}
		accounts.Owner = owner
	}

	if req.Predecessor != "" {
		pre, err := ledger.ParsePubkey(req.Predecessor)
		if err != nil {
			return accounts, errors.Wrap(err, "predecessor")
		}
		accounts.Remaining = append(accounts.Remaining, pre)
	}

	if req.Tag != "" {
		if req.Predecessor == "" {
			return accounts, errors.Wrap(errInvalidRequest, "tag requires a predecessor")
		}
		tag, err := ledger.ParsePubkey(req.Tag)
		if err != nil {
			return accounts, errors.Wrap(err, "tag")
		}
		accounts.Remaining = append(accounts.Remaining, tag)
	}

	addr, _, err := program.RecordAddress(s.program.ID(), req.Nonce, s.payer)
	if err != nil {
		return accounts, err
	}
	accounts.Record = addr
	return accounts, nil
}

// handleGetRecord returns the record stored at {address}.
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	addr, err := ledger.ParsePubkey(chi.URLParam(r, "address"))
	if err != nil {
		sendFailure(w, r, err)
		return
	}

	rec, err := s.program.FetchRecord(addr)
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	sendSuccess(w, RecordResponse{Address: addr, Record: rec})
}

// handleGetRecordChain walks back from {address} to its chain head and
// lists what follows it.
func (s *Server) handleGetRecordChain(w http.ResponseWriter, r *http.Request) {
	addr, err := ledger.ParsePubkey(chi.URLParam(r, "address"))
	if err != nil {
		sendFailure(w, r, err)
		return
	}

	path, err := program.WalkToHead(r.Context(), s.program, addr)
	if err != nil {
		sendFailure(w, r, err)
		return
	}

	sendSuccess(w, RecordChainResponse{
		Address:     addr,
		ChainID:     path.ChainID,
		Head:        path.Head,
		Path:        path.Path,
		Successors:  s.index.Successors(addr),
		Descendants: s.index.Descendants(addr),
	})
}

// handleGetChain lists the records of every chain carrying {chainID}.
func (s *Server) handleGetChain(w http.ResponseWriter, r *http.Request) {
	chainID := chi.URLParam(r, "chainID")
	if len(chainID) != codec.ChainIDLen {
		sendError(w, "chain id must be 36 characters", CodeInvalidRequest, http.StatusBadRequest)
		return
	}

	heads := s.index.Heads(chainID)
	if len(heads) == 0 {
		sendError(w, "chain not found", CodeNotFound, http.StatusNotFound)
		return
	}

	resp := ChainResponse{ChainID: chainID, Records: s.index.Chain(chainID)}
	for _, h := range heads {
		resp.Heads = append(resp.Heads, h.Address)
	}
	resp.Length = len(resp.Records)
	sendSuccess(w, resp)
}

// handleGetOwnerRecords lists the records authored by {owner}, oldest
// first.
func (s *Server) handleGetOwnerRecords(w http.ResponseWriter, r *http.Request) {
	owner, err := ledger.ParsePubkey(chi.URLParam(r, "owner"))
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	sendSuccess(w, s.index.ByOwner(owner))
}

// handleQueryRecords lists the records matching every ?where= condition,
// e.g. ?where=owner=<key>&where=created_time>=1700000000. ?limit= caps the
// number returned.
func (s *Server) handleQueryRecords(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	limit := 0
	if raw := params.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			sendError(w, "limit must be a non-negative integer", CodeInvalidRequest, http.StatusBadRequest)
			return
		}
		limit = n
	}

	conds := make([]query.FieldQuery, 0, len(params["where"]))
	for _, raw := range params["where"] {
		q, err := query.ParseFieldQuery(raw)
		if err != nil {
			sendFailure(w, r, err)
			return
		}
		conds = append(conds, q)
	}

	it, err := s.query.ExecuteQuery(r.Context(), conds...)
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	defer it.Close()

	out := make([]*chainindex.Entry, 0)
	for it.Next() {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, it.Result())
	}
	sendSuccess(w, out)
}

// handleStats reports node statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, StatsResponse{
		ProgramID:      s.program.ID(),
		Payer:          s.payer,
		RecordsIndexed: s.index.Len(),
		RecordSpace:    codec.Space(),
	})
}

// startMetricsUpdater refreshes gauges until ctx is done.
func (s *Server) startMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.metrics.UpdateIndexStats(s.index.Len())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.metrics.UpdateIndexStats(s.index.Len())
		}
	}
}
