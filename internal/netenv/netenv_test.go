// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package netenv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLittleEndianHexIP(t *testing.T) {
	// 192.168.1.1 stored little-endian as the kernel writes it:
	// 0x0101A8C0 == 01 01 A8 C0 in byte order 192.168.1.1.
	addr, err := parseLittleEndianHexIP("0101A8C0")
	require.NoError(t, err)
	require.Equal(t, "192.168.1.1", addr.String())
}

func TestParseLittleEndianHexIPRejectsGarbage(t *testing.T) {
	_, err := parseLittleEndianHexIP("not-hex")
	require.Error(t, err)
}
