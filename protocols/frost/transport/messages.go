package transport

import (
	"github.com/taurusgroup/frost-coordinator/pkg/party"
	"github.com/taurusgroup/frost-coordinator/protocols/frost"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/keygen"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/sign"
)

type DkgRound1Request struct {
	Entity frost.EntityID
}

type DkgRound1Response struct {
	Package *keygen.Round1Package
}

type DkgRound2Request struct {
	Entity frost.EntityID
	Round1 map[party.ID]*keygen.Round1Package
}

type DkgRound2Response struct {
	Packages map[party.ID]*keygen.Round2Package
}

type DkgFinalizeRequest struct {
	Entity frost.EntityID
	Round1 map[party.ID]*keygen.Round1Package
	Round2 map[party.ID]*keygen.Round2Package
}

type DkgFinalizeResponse struct {
	PublicKeyPackage *keygen.PublicKeyPackage
}

type SignRound1Request struct {
	Entity   frost.EntityID
	Session  frost.SessionID
	Tweak    []byte         `cbor:",omitempty"`
	Metadata frost.Metadata `cbor:",omitempty"`
}

type SignRound1Response struct {
	Commitments *sign.Commitments
}

type SignRound2Request struct {
	Entity  frost.EntityID
	Session frost.SessionID
	Package *sign.SigningPackage
}

type SignRound2Response struct {
	Share *sign.SignatureShare
}
