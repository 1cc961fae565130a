package api

import (
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/ssargent/dblog/pkg/chainindex"
	"github.com/ssargent/dblog/pkg/codec"
	"github.com/ssargent/dblog/pkg/ledger"
	"github.com/ssargent/dblog/pkg/program"
	"github.com/ssargent/dblog/pkg/query"
)

// Error codes returned in APIResponse.Code.
const (
	CodeInvalidRequest      = "invalid_request"
	CodeInvalidPubkey       = "invalid_pubkey"
	CodeIncorrectOwner      = "incorrect_owner"
	CodePreOwnerMismatch    = "pre_owner_mismatch"
	CodeKeyDecode           = "key_decode"
	CodeNoneDecode          = "none_decode"
	CodeTitleDecode         = "title_decode"
	CodeTruncated           = "truncated"
	CodeDiscriminator       = "account_discriminator"
	CodeTitleMaxLen         = "title_max_len"
	CodeEncryptHintMaxLen   = "encrypt_hint_max_len"
	CodeSeedsConstraint     = "seeds_constraint"
	CodeAccountInUse        = "account_in_use"
	CodeMissingSigner       = "missing_signer"
	CodeNotFound            = "not_found"
	CodeChainBroken         = "chain_broken"
	CodeUnauthorized        = "unauthorized"
	CodeInternal            = "internal"
	CodeInvalidRecordFields = "invalid_record"
	CodeInvalidQuery        = "invalid_query"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// errorTable is matched in order. Field-level decode errors also match
// their kind, so the kinds come after anything more specific.
var errorTable = []errorMapping{
	{program.ErrPreOwnerMismatch, http.StatusForbidden, CodePreOwnerMismatch},
	{program.ErrIncorrectOwner, http.StatusBadRequest, CodeIncorrectOwner},

	{codec.ErrKeyDecode, http.StatusUnprocessableEntity, CodeKeyDecode},
	{codec.ErrNoneDecode, http.StatusUnprocessableEntity, CodeNoneDecode},
	{codec.ErrTitleDecode, http.StatusUnprocessableEntity, CodeTitleDecode},
	{codec.ErrTruncated, http.StatusUnprocessableEntity, CodeTruncated},
	{codec.ErrAccountDiscriminator, http.StatusUnprocessableEntity, CodeDiscriminator},

	{codec.ErrTitleMaxLen, http.StatusBadRequest, CodeTitleMaxLen},
	{codec.ErrEncryptHintMaxLen, http.StatusBadRequest, CodeEncryptHintMaxLen},
	{codec.ErrContentURITooLong, http.StatusBadRequest, CodeInvalidRecordFields},
	{codec.ErrNonceTooLong, http.StatusBadRequest, CodeInvalidRecordFields},
	{codec.ErrInvalidString, http.StatusBadRequest, CodeInvalidRecordFields},
	{codec.ErrInvalidChainID, http.StatusBadRequest, CodeInvalidRecordFields},

	{ledger.ErrSeedsConstraint, http.StatusBadRequest, CodeSeedsConstraint},
	{ledger.ErrMaxSeedLengthExceeded, http.StatusBadRequest, CodeSeedsConstraint},
	{ledger.ErrAccountInUse, http.StatusConflict, CodeAccountInUse},
	{ledger.ErrMissingSigner, http.StatusBadRequest, CodeMissingSigner},
	{ledger.ErrInvalidPubkey, http.StatusBadRequest, CodeInvalidPubkey},
	{ledger.ErrAccountNotFound, http.StatusNotFound, CodeNotFound},
	{chainindex.ErrNotIndexed, http.StatusNotFound, CodeNotFound},

	{program.ErrChainCycle, http.StatusConflict, CodeChainBroken},
	{program.ErrChainTooDeep, http.StatusConflict, CodeChainBroken},
	{program.ErrHeadMissingID, http.StatusConflict, CodeChainBroken},

	{query.ErrInvalidQuery, http.StatusBadRequest, CodeInvalidQuery},
	{errInvalidRequest, http.StatusBadRequest, CodeInvalidRequest},
}

var errInvalidRequest = errors.New("invalid request")

// classifyError maps err onto an HTTP status and a stable error code.
func classifyError(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, CodeInternal
}
