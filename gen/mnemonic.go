// Copyright (c) 2025-2026 The regtestgen developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gen

import (
	"crypto/sha256"
	"fmt"

	"github.com/tyler-smith/go-bip39"
)

// walletMnemonic derives a BIP 39 mnemonic for the named wallet from the
// run seed.  The entropy is the first 16 bytes of a domain-separated hash,
// giving a 12-word mnemonic that is stable across runs with the same seed.
func walletMnemonic(seed int64, walletName string) (string, error) {
	digest := sha256.Sum256([]byte(fmt.Sprintf("regtestgen/%d/%s", seed,
		walletName)))
	mnemonic, err := bip39.NewMnemonic(digest[:16])
	if err != nil {
		return "", fmt.Errorf("mnemonic for %s: %w", walletName, err)
	}
	return mnemonic, nil
}
