// Command rfm69-dump prints the register file of an attached RFM69 module
// along with a few decoded fields. Useful when bringing up new hardware.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/annie444/radio-hal/internal/log"
	"github.com/annie444/radio-hal/pkg/driver/rfm69"
)

var (
	spiPort = flag.String("spi", "", "SPI `port` of the RFM69 module (empty picks the first available port)")
	debug   = flag.Bool("debug", false, "Enable verbose debugging messages")
)

var modeNames = map[byte]string{
	rfm69.MODE_SLEEP:    "sleep",
	rfm69.MODE_STANDBY:  "standby",
	rfm69.MODE_FS:       "frequency synthesis",
	rfm69.MODE_TRANSMIT: "transmit",
	rfm69.MODE_RECEIVE:  "receive",
}

func main() {
	flag.Parse()
	if *debug {
		log.SetLevel(log.LevelDebug)
	}
	if err := dump(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func dump() error {
	dev, err := rfm69.Open(rfm69.Config{Port: *spiPort})
	if err != nil {
		return err
	}
	defer dev.Close()

	fmt.Println("       0  1  2  3  4  5  6  7")
	for base := 0; base < 0x50; base += 8 {
		fmt.Printf("0x%02x:", base)
		for offset := 0; offset < 8; offset++ {
			value, err := dev.ReadRegister(byte(base + offset))
			if err != nil {
				return fmt.Errorf("read register 0x%02x: %w", base+offset, err)
			}
			fmt.Printf(" %02x", value)
		}
		fmt.Println("")
	}

	version, err := dev.ReadRegister(rfm69.REG_VERSION)
	if err != nil {
		return err
	}
	mode, err := dev.ReadRegister(rfm69.REG_OPMODE)
	if err != nil {
		return err
	}
	var frf uint32
	for i := 0; i < 3; i++ {
		value, err := dev.ReadRegister(rfm69.REG_FRFMSB + byte(i))
		if err != nil {
			return err
		}
		frf = frf<<8 | uint32(value)
	}
	var rate uint32
	for i := 0; i < 2; i++ {
		value, err := dev.ReadRegister(rfm69.REG_BITRATEMSB + byte(i))
		if err != nil {
			return err
		}
		rate = rate<<8 | uint32(value)
	}

	fmt.Printf("\nChip revision: 0x%02x\n", version)
	modeName, ok := modeNames[mode&0x1c]
	if !ok {
		modeName = fmt.Sprintf("0x%02x", mode)
	}
	fmt.Printf("Mode:          %s\n", modeName)
	// Frequency steps are Fxosc / 2^19, with a 32MHz crystal.
	fmt.Printf("Frequency:     %.3f MHz\n", float64(frf)*32e6/(1<<19)/1e6)
	if rate > 0 {
		fmt.Printf("Bit rate:      %d bps\n", 32000000/rate)
	}

	if err := dev.StartReceive(); err != nil {
		return err
	}
	rssi, err := dev.PollRSSI()
	if err != nil {
		return err
	}
	fmt.Printf("RSSI:          %d dBm\n", rssi)
	return nil
}
