// Copyright 2025 VeloxVoIP
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// 	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package telnyx

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"net/http"
)

// VerifySignature checks the Ed25519 detached signature Telnyx attaches to
// every webhook. The signed message is the raw, unparsed body prefixed with
// the timestamp header and a pipe. Any malformed input is a verification
// failure, not an error.
func (p *Provider) VerifySignature(raw []byte, headers http.Header) bool {
	ts := headers.Get(timestampHeader)
	sig := headers.Get(signatureHeader)
	if ts == "" || sig == "" || p.conf.PublicKey == "" {
		return false
	}

	pub, err := base64.StdEncoding.DecodeString(p.conf.PublicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}

	// Telnyx documents base64 but hex-encoded signatures have been observed.
	sigBytes, err := base64.StdEncoding.DecodeString(sig)
	if err != nil || len(sigBytes) != ed25519.SignatureSize {
		sigBytes, err = hex.DecodeString(sig)
		if err != nil || len(sigBytes) != ed25519.SignatureSize {
			return false
		}
	}

	msg := make([]byte, 0, len(ts)+1+len(raw))
	msg = append(msg, ts...)
	msg = append(msg, '|')
	msg = append(msg, raw...)

	return ed25519.Verify(ed25519.PublicKey(pub), msg, sigBytes)
}
