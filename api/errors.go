//nolint:lll
package api

import (
	"errors"

	"go.anonvote.io/avote/commission"
	"go.anonvote.io/avote/credential"
	"go.anonvote.io/avote/crypto/kdf"
	"go.anonvote.io/avote/crypto/sealer"
	"go.anonvote.io/avote/data"
	"go.anonvote.io/avote/election"
	"go.anonvote.io/avote/httprouter/apirest"
	"go.anonvote.io/avote/tally"
)

// APIerror satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 4001-4999 range are the user's fault,
// and error codes 5001-5999 are the server's fault, mimicking HTTP.
var (
	ErrCantParseDataAsJSON        = apirest.APIerror{Code: 4001, HTTPstatus: apirest.HTTPstatusBadRequest, Err: errors.New("cannot parse data as JSON")}
	ErrCantParseElectionID        = apirest.APIerror{Code: 4002, HTTPstatus: apirest.HTTPstatusBadRequest, Err: errors.New("cannot parse electionID")}
	ErrCantParseCandidateID       = apirest.APIerror{Code: 4003, HTTPstatus: apirest.HTTPstatusBadRequest, Err: errors.New("cannot parse candidateID")}
	ErrParamStatusMissing         = apirest.APIerror{Code: 4004, HTTPstatus: apirest.HTTPstatusBadRequest, Err: errors.New("parameter (status) missing or invalid")}
	ErrParamPasswordMissing       = apirest.APIerror{Code: 4005, HTTPstatus: apirest.HTTPstatusBadRequest, Err: errors.New("parameter (password) missing")}
	ErrParamVoterIDMissing        = apirest.APIerror{Code: 4006, HTTPstatus: apirest.HTTPstatusBadRequest, Err: errors.New("parameter (voterId) missing")}
	ErrElectionNotFound           = apirest.APIerror{Code: 4007, HTTPstatus: apirest.HTTPstatusNotFound, Err: errors.New("election not found")}
	ErrElectionInvalid            = apirest.APIerror{Code: 4008, HTTPstatus: apirest.HTTPstatusBadRequest, Err: errors.New("invalid election")}
	ErrElectionStatusInvalid      = apirest.APIerror{Code: 4009, HTTPstatus: apirest.HTTPstatusConflict, Err: errors.New("operation not allowed in current election status")}
	ErrElectionNotFinished        = apirest.APIerror{Code: 4010, HTTPstatus: apirest.HTTPstatusConflict, Err: errors.New("election is not finished")}
	ErrCredentialExists           = apirest.APIerror{Code: 4011, HTTPstatus: apirest.HTTPstatusConflict, Err: errors.New("voter already registered")}
	ErrCredentialNotFound         = apirest.APIerror{Code: 4012, HTTPstatus: apirest.HTTPstatusNotFound, Err: errors.New("voter not registered")}
	ErrWrongPassword              = apirest.APIerror{Code: 4013, HTTPstatus: apirest.HTTPstatusUnauthorized, Err: errors.New("wrong password")}
	ErrCandidateUnknown           = apirest.APIerror{Code: 4014, HTTPstatus: apirest.HTTPstatusBadRequest, Err: errors.New("unknown candidate")}
	ErrMarshalingServerJSONFailed = apirest.APIerror{Code: 5001, HTTPstatus: apirest.HTTPstatusInternalErr, Err: errors.New("marshaling (server-side) JSON failed")}
	ErrStorageUnavailable         = apirest.APIerror{Code: 5002, HTTPstatus: apirest.HTTPstatusServiceUnavailable, Err: errors.New("content store unavailable")}
	ErrInternal                   = apirest.APIerror{Code: 5003, HTTPstatus: apirest.HTTPstatusInternalErr, Err: errors.New("internal error")}
	ErrKeyDerivationTimeout       = apirest.APIerror{Code: 5004, HTTPstatus: apirest.HTTPstatusServiceUnavailable, Err: errors.New("password derivation timed out")}
	ErrKeyDerivationFailed        = apirest.APIerror{Code: 5005, HTTPstatus: apirest.HTTPstatusInternalErr, Err: errors.New("password derivation failed")}
)

// toAPIerror maps a commission error to its APIerror. Unknown errors become
// ErrInternal and keep their message.
func toAPIerror(err error) error {
	switch {
	case errors.Is(err, election.ErrNotFound):
		return ErrElectionNotFound
	case errors.Is(err, commission.ErrInvalidElection):
		return ErrElectionInvalid.WithErr(err)
	case errors.Is(err, commission.ErrInvalidStatus):
		return ErrElectionStatusInvalid.WithErr(err)
	case errors.Is(err, tally.ErrElectionNotFinished):
		return ErrElectionNotFinished
	case errors.Is(err, credential.ErrCredentialExists):
		return ErrCredentialExists
	case errors.Is(err, credential.ErrNotFound):
		return ErrCredentialNotFound
	case errors.Is(err, kdf.ErrKeyDerivationTimeout):
		return ErrKeyDerivationTimeout
	case errors.Is(err, kdf.ErrKeyDerivation):
		return ErrKeyDerivationFailed.WithErr(err)
	case errors.Is(err, election.ErrDecryption),
		errors.Is(err, sealer.ErrAuthentication):
		return ErrWrongPassword
	case errors.Is(err, tally.ErrUnknownCandidate):
		return ErrCandidateUnknown
	case errors.Is(err, data.ErrStoreFetch):
		return ErrStorageUnavailable
	default:
		return ErrInternal.WithErr(err)
	}
}
