package cartridge

// BuildTestROM constructs a minimal LoROM image with a valid header and
// checksum for use in tests. size must be a multiple of 0x8000.
func BuildTestROM(size int, resetVector uint16) []uint8 {
	if size < 0x8000 {
		size = 0x8000
	}
	rom := make([]uint8, size)

	header := rom[0x7FC0:0x8000]
	copy(header[0x00:0x15], []byte("TEST ROM           "))
	header[0x15] = 0x20 // LoROM, slow
	header[0x16] = 0x00 // no coprocessor
	header[0x17] = 0x08 // 2Mb
	header[0x18] = 0x00 // no sram
	header[0x3C] = uint8(resetVector)
	header[0x3D] = uint8(resetVector >> 8)

	checksum := computeChecksum(rom, 0x7FDC)
	header[0x1E] = uint8(checksum)
	header[0x1F] = uint8(checksum >> 8)
	header[0x1C] = uint8(^checksum)
	header[0x1D] = uint8(^checksum >> 8)

	return rom
}

// computeChecksum sums every byte of rom except the 4-byte checksum/complement
// field located at skipOffset, so a self-consistent header can be built.
func computeChecksum(rom []uint8, skipOffset int) uint16 {
	var sum uint16
	for i, b := range rom {
		if i >= skipOffset && i < skipOffset+4 {
			continue
		}
		sum += uint16(b)
	}
	return sum
}
