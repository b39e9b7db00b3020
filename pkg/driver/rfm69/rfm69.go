// Package rfm69 drives a HopeRF RFM69 module (Semtech SX1231 chip) on an
// SPI bus through a polled radio.Device.
//
// The chip is operated in FSK variable-length packet mode, which caps
// payloads at the 65 bytes that fit the FIFO after the length byte. The
// DIO interrupt lines are left unused: completion and delivery are polled
// from the IRQ flag registers, which fits the adapter's poll-based
// contract and needs no GPIO wiring beyond the bus.
//
// Methods are not safe for concurrent use; own the device from a single
// goroutine.
package rfm69

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/annie444/radio-hal/internal/log"
	"github.com/annie444/radio-hal/pkg/radio"
)

// maxPayload is the largest frame the 66-byte FIFO can carry after the
// length byte.
const maxPayload = 65

var errClosed = errors.New("rfm69: device is closed")

// spiConn is the one bus primitive the driver needs. spi.Conn satisfies
// it; tests substitute a scripted register file.
type spiConn interface {
	Tx(w, r []byte) error
}

// Config selects the SPI port and RF parameters for Open.
type Config struct {
	// Port names the SPI port, e.g. "SPI0.0". Empty selects the first
	// available port.
	Port string

	// FrequencyHz is the center frequency. Values below 100MHz are taken
	// to be kHz or MHz and scaled up. Defaults to 915MHz.
	FrequencyHz uint32

	// BitrateBps must exist in the Rates table. Defaults to 50kbps.
	BitrateBps uint32

	// Sync holds 1 to 8 RF sync bytes shared by both ends of the link.
	// Defaults to {0x2d, 0xd4}.
	Sync []byte

	// PowerDBm is the initial output power for the PA0 stage (-18..13).
	PowerDBm int8
}

// Rate describes the register settings for one bit rate.
type Rate struct {
	Fdev    int  // TX frequency deviation in Hz
	Shaping byte // 0:none, 1:gaussian BT=1, 2:gaussian BT=0.5, 3:gaussian BT=0.3
	RxBw    byte // value for the RxBw register
	AfcBw   byte // value for the AfcBw register
}

// Rates maps supported bit rates to their register settings. Clients may
// extend it to operate at other rates.
var Rates = map[uint32]Rate{
	49230: {45000, 0, 0x4A, 0x42},
	50000: {90000, 0, 0x42, 0x42},
}

// Radio drives one RFM69 module.
type Radio struct {
	conn     spiConn
	port     spi.PortCloser
	mode     byte
	power    int8
	lastRSSI int16
	closed   bool
}

var _ radio.Device = (*Radio)(nil)

type rxInfo struct {
	rssi int16
}

func (i rxInfo) RSSI() int16 { return i.rssi }

// Open connects to the radio on cfg.Port, verifies SPI communication, and
// programs the RF parameters. The radio is left in standby; StartReceive
// turns the receiver on.
func Open(cfg Config) (*Radio, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("rfm69: host init: %w", err)
	}
	port, err := spireg.Open(cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("rfm69: open spi port: %w", err)
	}
	conn, err := port.Connect(4*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("rfm69: configure spi: %w", err)
	}
	r := &Radio{conn: conn, port: port, mode: 0xff}
	if err := r.init(cfg); err != nil {
		port.Close()
		return nil, err
	}
	return r, nil
}

func (r *Radio) init(cfg Config) error {
	if cfg.FrequencyHz == 0 {
		cfg.FrequencyHz = 915000000
	}
	if cfg.BitrateBps == 0 {
		cfg.BitrateBps = 50000
	}
	if len(cfg.Sync) == 0 {
		cfg.Sync = []byte{0x2d, 0xd4}
	}
	if len(cfg.Sync) > 8 {
		return fmt.Errorf("rfm69: invalid number of sync bytes: %d, must be 1..8", len(cfg.Sync))
	}

	if err := r.probe(0xaa); err != nil {
		return err
	}
	if err := r.probe(0x55); err != nil {
		return err
	}
	if err := r.setMode(MODE_SLEEP); err != nil {
		return err
	}
	if err := r.setMode(MODE_STANDBY); err != nil {
		return err
	}
	version, err := r.readReg(REG_VERSION)
	if err != nil {
		return fmt.Errorf("rfm69: %w", err)
	}
	log.Debug("rfm69: chip version %#x", version)

	for i := 0; i+1 < len(configRegs); i += 2 {
		if err := r.writeReg(configRegs[i], configRegs[i+1]); err != nil {
			return fmt.Errorf("rfm69: write config: %w", err)
		}
	}
	// The config table writes OPMODE directly.
	r.mode = MODE_SLEEP
	if err := r.setBitrate(cfg.BitrateBps); err != nil {
		return err
	}
	if err := r.setFrequency(cfg.FrequencyHz); err != nil {
		return err
	}
	if err := r.SetPower(cfg.PowerDBm); err != nil {
		return err
	}

	data := make([]byte, 0, len(cfg.Sync)+1)
	data = append(data, byte(0x80+((len(cfg.Sync)-1)<<3)))
	data = append(data, cfg.Sync...)
	if err := r.writeReg(REG_SYNCCONFIG, data...); err != nil {
		return fmt.Errorf("rfm69: write sync bytes: %w", err)
	}
	return r.setMode(MODE_STANDBY)
}

// probe verifies SPI communication by writing a pattern to a scratch
// register and reading it back.
func (r *Radio) probe(pattern byte) error {
	for n := 0; n < 10; n++ {
		if err := r.writeReg(REG_SYNCVALUE1, pattern); err != nil {
			return fmt.Errorf("rfm69: %w", err)
		}
		v, err := r.readReg(REG_SYNCVALUE1)
		if err != nil {
			return fmt.Errorf("rfm69: %w", err)
		}
		if v == pattern {
			return nil
		}
	}
	return errors.New("rfm69: cannot sync with chip")
}

// StartTransmit loads payload into the FIFO and switches the chip into
// transmit mode.
func (r *Radio) StartTransmit(payload []byte) error {
	if r.closed {
		return errClosed
	}
	if len(payload) == 0 || len(payload) > maxPayload {
		return fmt.Errorf("rfm69: payload of %d bytes does not fit a fifo frame", len(payload))
	}
	if err := r.setMode(MODE_FS); err != nil {
		return err
	}
	buf := make([]byte, len(payload)+1)
	buf[0] = byte(len(payload))
	copy(buf[1:], payload)
	if err := r.writeReg(REG_FIFO, buf...); err != nil {
		return err
	}
	return r.setMode(MODE_TRANSMIT)
}

func (r *Radio) CheckTransmit() (bool, error) {
	if r.closed {
		return false, errClosed
	}
	irq2, err := r.readReg(REG_IRQFLAGS2)
	if err != nil {
		return false, err
	}
	if irq2&IRQ2_PACKETSENT == 0 {
		return false, nil
	}
	// Leave the PA off between operations.
	if err := r.setMode(MODE_STANDBY); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Radio) StartReceive() error {
	if r.closed {
		return errClosed
	}
	return r.setMode(MODE_RECEIVE)
}

func (r *Radio) CheckReceive(restart bool) (bool, error) {
	if r.closed {
		return false, errClosed
	}
	if r.mode != MODE_RECEIVE {
		if !restart {
			return false, nil
		}
		if err := r.setMode(MODE_RECEIVE); err != nil {
			return false, err
		}
	}
	irq2, err := r.readReg(REG_IRQFLAGS2)
	if err != nil {
		return false, err
	}
	if irq2&IRQ2_PAYLOADREADY == 0 {
		return false, nil
	}
	if irq2&IRQ2_CRCOK == 0 {
		// Drop the corrupt frame; auto rx restart keeps the receiver
		// armed.
		if _, err := r.readFifo(); err != nil {
			return false, err
		}
		return false, nil
	}
	// RSSI has to be captured before the FIFO drain restarts the
	// receiver.
	rssi, err := r.readReg(REG_RSSIVALUE)
	if err != nil {
		return false, err
	}
	r.lastRSSI = -int16(rssi) / 2
	return true, nil
}

func (r *Radio) GetReceived(buf []byte) (int, radio.RxInfo, error) {
	if r.closed {
		return 0, nil, errClosed
	}
	payload, err := r.readFifo()
	if err != nil {
		return 0, nil, err
	}
	n := copy(buf, payload)
	return n, rxInfo{rssi: r.lastRSSI}, nil
}

// readFifo drains one variable-length frame. Reading the whole FIFO in a
// single transaction is faster than inspecting the length first.
func (r *Radio) readFifo() ([]byte, error) {
	var wBuf, rBuf [maxPayload + 2]byte
	wBuf[0] = REG_FIFO
	if err := r.conn.Tx(wBuf[:], rBuf[:]); err != nil {
		return nil, err
	}
	l := int(rBuf[1])
	if l > maxPayload {
		return nil, fmt.Errorf("rfm69: fifo frame of %d bytes is corrupt", l)
	}
	return rBuf[2 : 2+l], nil
}

// PollRSSI triggers a measurement and waits for it to complete. The
// receiver should be listening for the value to reflect the channel.
func (r *Radio) PollRSSI() (int16, error) {
	if r.closed {
		return 0, errClosed
	}
	if err := r.writeReg(REG_RSSICONFIG, RSSI_START); err != nil {
		return 0, err
	}
	deadline := time.Now().Add(10 * time.Millisecond)
	for {
		v, err := r.readReg(REG_RSSICONFIG)
		if err != nil {
			return 0, err
		}
		if v&RSSI_DONE != 0 {
			break
		}
		if time.Now().After(deadline) {
			return 0, errors.New("rfm69: rssi measurement timed out")
		}
	}
	v, err := r.readReg(REG_RSSIVALUE)
	if err != nil {
		return 0, err
	}
	return -int16(v) / 2, nil
}

// SetPower programs the PA0 output stage, which covers -18 to 13 dBm.
// Modules with the high-power PA1+PA2 stages are not supported.
func (r *Radio) SetPower(dbm int8) error {
	if r.closed {
		return errClosed
	}
	if dbm < -18 || dbm > 13 {
		return fmt.Errorf("rfm69: output power %ddBm out of range -18..13", dbm)
	}
	mode := r.mode
	if err := r.setMode(MODE_STANDBY); err != nil {
		return err
	}
	if err := r.writeReg(REG_PALEVEL, 0x80+byte(dbm+18)); err != nil {
		return err
	}
	if err := r.writeReg(REG_TESTPA1, 0x55); err != nil {
		return err
	}
	if err := r.writeReg(REG_TESTPA2, 0x70); err != nil {
		return err
	}
	r.power = dbm
	if mode == MODE_STANDBY || mode > MODE_RECEIVE {
		return nil
	}
	return r.setMode(mode)
}

func (r *Radio) Delay(d time.Duration) { time.Sleep(d) }

// Close puts the chip to sleep and releases the SPI port. Closing twice is
// a no-op.
func (r *Radio) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.setMode(MODE_SLEEP)
	if r.port != nil {
		if cerr := r.port.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// ReadRegister returns the raw value of one configuration register, for
// diagnostics.
func (r *Radio) ReadRegister(addr byte) (byte, error) {
	if r.closed {
		return 0, errClosed
	}
	return r.readReg(addr)
}

// setMode switches the operating mode and waits for the chip to settle.
func (r *Radio) setMode(mode byte) error {
	mode &= 0x1c
	if r.mode == mode {
		return nil
	}
	if err := r.writeReg(REG_OPMODE, mode); err != nil {
		return err
	}
	deadline := time.Now().Add(100 * time.Millisecond)
	for {
		v, err := r.readReg(REG_IRQFLAGS1)
		if err != nil {
			return err
		}
		if v&IRQ1_MODEREADY != 0 {
			r.mode = mode
			return nil
		}
		if time.Now().After(deadline) {
			return errors.New("rfm69: timeout switching modes")
		}
	}
}

// setFrequency programs the carrier. Frequency steps are units of
// 32MHz >> 19 = 61.03515625 Hz; using multiples of 64 steps avoids
// multi-precision arithmetic and stays well inside the 32MHz crystal's
// accuracy.
func (r *Radio) setFrequency(freq uint32) error {
	for freq > 0 && freq < 100000000 {
		freq *= 10
	}
	frf := (freq << 2) / (32000000 >> 11)
	return r.writeReg(REG_FRFMSB, byte(frf>>10), byte(frf>>2), byte(frf<<6))
}

func (r *Radio) setBitrate(bps uint32) error {
	params, found := Rates[bps]
	if !found {
		return fmt.Errorf("rfm69: unsupported bit rate %d", bps)
	}
	rateVal := (32000000 + bps/2) / bps
	if err := r.writeReg(REG_BITRATEMSB, byte(rateVal>>8), byte(rateVal)); err != nil {
		return err
	}
	const fStep = 32000000.0 / 524288
	fdevVal := uint32((float64(params.Fdev) + fStep/2) / fStep)
	if err := r.writeReg(REG_FDEVMSB, byte(fdevVal>>8), byte(fdevVal)); err != nil {
		return err
	}
	if err := r.writeReg(REG_DATAMODUL, params.Shaping&0x3); err != nil {
		return err
	}
	if err := r.writeReg(REG_RXBW, params.RxBw, params.AfcBw); err != nil {
		return err
	}
	// AFC offset at 10% of the deviation.
	return r.writeReg(REG_TESTAFC, byte(params.Fdev/10/488))
}

// writeReg writes one or more registers starting at addr; the chip
// auto-increments the address.
func (r *Radio) writeReg(addr byte, data ...byte) error {
	wBuf := make([]byte, len(data)+1)
	rBuf := make([]byte, len(data)+1)
	wBuf[0] = addr | 0x80
	copy(wBuf[1:], data)
	return r.conn.Tx(wBuf, rBuf)
}

// readReg reads one register and returns its value.
func (r *Radio) readReg(addr byte) (byte, error) {
	var buf [2]byte
	if err := r.conn.Tx([]byte{addr & 0x7f, 0}, buf[:]); err != nil {
		return 0, err
	}
	return buf[1], nil
}
