package data

import "time"

// ReceiptName is the file written at the root of every installed
// prefix. The receipt is advisory: removal never trusts it blindly,
// but listing and checking read it for provenance.
const ReceiptName = ".install-receipt.json"

type InstallReceipt struct {
	Module  string `json:"module"`
	Version string `json:"version"`
	Product string `json:"product"`
	Target  string `json:"target,omitempty"`

	// Archive is the path or URL the distribution came from.
	Archive string `json:"archive"`

	// Sum is the verified archive digest, when one was checked.
	Sum string `json:"sum,omitempty"`

	InstalledAt time.Time `json:"installed_at"`
}
