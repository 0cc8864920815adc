package issuance

import (
	"encoding/hex"
	"strings"

	"github.com/zeebo/blake3"
)

// VerificationID is stable for a case, document type and citizen.
func VerificationID(caseID, documentType, citizenID string) string {
	sum := blake3.Sum256([]byte(caseID + "|" + documentType + "|" + citizenID))
	return "VER-" + strings.ToUpper(hex.EncodeToString(sum[:])[:12])
}

// DownloadKey is where the resolved artifact for an issued document lives in
// the downloads bucket.
func DownloadKey(caseID, issuedID string) string {
	return caseID + "/" + issuedID
}
