// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.

package store

import (
	"crypto/sha256"

	"github.com/refinio/onecore/common"
)

func sha256Sum(data []byte) common.Hash {
	return sha256.Sum256(data)
}
