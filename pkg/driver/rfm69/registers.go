package rfm69

const (
	REG_FIFO       = 0x00
	REG_OPMODE     = 0x01
	REG_DATAMODUL  = 0x02
	REG_BITRATEMSB = 0x03
	REG_FDEVMSB    = 0x05
	REG_FRFMSB     = 0x07
	REG_AFCCTRL    = 0x0B
	REG_VERSION    = 0x10
	REG_PALEVEL    = 0x11
	REG_RXBW       = 0x19
	REG_RSSICONFIG = 0x23
	REG_RSSIVALUE  = 0x24
	REG_IRQFLAGS1  = 0x27
	REG_IRQFLAGS2  = 0x28
	REG_SYNCCONFIG = 0x2E
	REG_SYNCVALUE1 = 0x2F
	REG_PKTCONFIG2 = 0x3D
	REG_TESTPA1    = 0x5A
	REG_TESTPA2    = 0x5C
	REG_TESTAFC    = 0x71

	MODE_SLEEP    = 0 << 2
	MODE_STANDBY  = 1 << 2
	MODE_FS       = 2 << 2
	MODE_TRANSMIT = 3 << 2
	MODE_RECEIVE  = 4 << 2

	IRQ1_MODEREADY = 1 << 7

	IRQ2_FIFONOTEMPTY = 1 << 6
	IRQ2_PACKETSENT   = 1 << 3
	IRQ2_PAYLOADREADY = 1 << 2
	IRQ2_CRCOK        = 1 << 1

	RSSI_START = 1 << 0
	RSSI_DONE  = 1 << 1
)

// register values to initialize the chip, this array has pairs of <address, data>
var configRegs = []byte{
	0x01, 0x00, // OpMode = sleep
	0x12, 0x09, // Pa ramp in 40us
	0x1E, 0x0C, // AfcAutoclearOn, AfcAutoOn
	0x26, 0x07, // disable clkout
	0x29, 0xA8, // RssiThresh -84dB
	0x2A, 0x00, // disable RxStart timeout
	0x2B, 0x40, // RssiTimeout after 2*64=128 bytes
	0x2D, 0x05, // PreambleSize = 5
	0x37, 0xD0, // PacketConfig1 = variable length, whitening, crc, no addr filter
	0x38, 0x42, // PayloadLength = max 66
	0x3C, 0x8F, // FifoThresh, not empty, level 15
	0x3D, 0x12, // PacketConfig2, interpkt = 1, autorxrestart on
	0x6F, 0x30, // RegTestDagc, improve AFC w/out low-beta offset

	// Bit rate, deviation, frequency, and the sync bytes are programmed
	// dynamically from the configuration.
}
