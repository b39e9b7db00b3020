package ops_test

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/annie444/radio-hal/mocks"
	"github.com/annie444/radio-hal/pkg/blocking"
	"github.com/annie444/radio-hal/pkg/ops"
	"github.com/annie444/radio-hal/pkg/radio"
)

var _ = Describe("LinkTest", func() {
	var (
		mockCtrl *gomock.Controller
		device   *mocks.MockDevice
		delays   []time.Duration
		obs      *recorder
		opts     ops.LinkTestOptions
		lastSent []byte
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		device = mocks.NewMockDevice(mockCtrl)
		delays = nil
		obs = &recorder{}
		lastSent = nil
		device.EXPECT().Delay(gomock.Any()).Do(func(d time.Duration) {
			delays = append(delays, d)
		}).AnyTimes()
		opts = ops.LinkTestOptions{
			Delay:    50 * time.Millisecond,
			Policy:   blocking.Policy{PollInterval: time.Millisecond, Timeout: 10 * time.Millisecond},
			Observer: obs,
		}
	})

	recordTransmits := func(rounds int) {
		device.EXPECT().StartTransmit(gomock.Any()).DoAndReturn(func(payload []byte) error {
			lastSent = append(lastSent[:0], payload...)
			return nil
		}).Times(rounds)
		device.EXPECT().CheckTransmit().Return(true, nil).Times(rounds)
	}

	roundPauses := func() int {
		n := 0
		for _, d := range delays {
			if d == opts.Delay {
				n++
			}
		}
		return n
	}

	rxInfo := func(rssi int16) *mocks.MockRxInfo {
		info := mocks.NewMockRxInfo(mockCtrl)
		info.EXPECT().RSSI().Return(rssi).AnyTimes()
		return info
	}

	Context("when the peer echoes cleanly", func() {
		It("accumulates link statistics over every round", func() {
			opts.Rounds = 3
			opts.Power = int8Ptr(10)
			opts.ParseInfo = true
			locals := []int16{-60, -61, -62}
			call := 0

			device.EXPECT().SetPower(int8(10)).Return(nil)
			recordTransmits(3)
			device.EXPECT().StartReceive().Return(nil).Times(3)
			device.EXPECT().CheckReceive(true).Return(true, nil).Times(3)
			device.EXPECT().GetReceived(gomock.Any()).DoAndReturn(func(buf []byte) (int, radio.RxInfo, error) {
				n := copy(buf, lastSent)
				remote := int16(-40)
				binary.BigEndian.PutUint16(buf[n:], uint16(remote))
				info := rxInfo(locals[call])
				call++
				return n + 2, info, nil
			}).Times(3)

			report, err := ops.LinkTest(context.Background(), device, opts)
			Expect(err).To(BeNil())
			Expect(report.Sent).To(Equal(uint32(3)))
			Expect(report.Received).To(Equal(uint32(3)))
			Expect(report.LocalRSSI.Count()).To(Equal(uint64(3)))
			Expect(report.LocalRSSI.Mean()).To(BeNumerically("~", -61, 1e-9))
			Expect(report.RemoteRSSI.Count()).To(Equal(uint64(3)))
			Expect(report.RemoteRSSI.Mean()).To(BeNumerically("~", -40, 1e-9))
			Expect(binary.BigEndian.Uint32(lastSent[:4])).To(Equal(uint32(2)))

			Expect(obs.rounds).To(HaveLen(3))
			Expect(obs.rounds[1].Index).To(Equal(uint32(1)))
			Expect(obs.rounds[1].Received).To(BeTrue())
			Expect(*obs.rounds[1].LocalRSSI).To(Equal(int16(-61)))
			Expect(*obs.rounds[1].RemoteRSSI).To(Equal(int16(-40)))
		})

		It("keeps local statistics when trailers are not requested", func() {
			opts.Rounds = 1

			recordTransmits(1)
			device.EXPECT().StartReceive().Return(nil)
			device.EXPECT().CheckReceive(true).Return(true, nil)
			device.EXPECT().GetReceived(gomock.Any()).DoAndReturn(func(buf []byte) (int, radio.RxInfo, error) {
				return copy(buf, lastSent), rxInfo(-58), nil
			})

			report, err := ops.LinkTest(context.Background(), device, opts)
			Expect(err).To(BeNil())
			Expect(report.Received).To(Equal(uint32(1)))
			Expect(report.LocalRSSI.Count()).To(Equal(uint64(1)))
			Expect(report.RemoteRSSI.Count()).To(BeZero())
			Expect(obs.rounds[0].RemoteRSSI).To(BeNil())
		})
	})

	Context("when rounds go missing", func() {
		It("counts a timed-out reply against the link and carries on", func() {
			opts.Rounds = 2

			recordTransmits(2)
			device.EXPECT().StartReceive().Return(nil).Times(2)
			device.EXPECT().CheckReceive(true).DoAndReturn(func(bool) (bool, error) {
				// Round 0 answers on the first poll; round 1 never does.
				return binary.BigEndian.Uint32(lastSent[:4]) == 0, nil
			}).AnyTimes()
			device.EXPECT().GetReceived(gomock.Any()).DoAndReturn(func(buf []byte) (int, radio.RxInfo, error) {
				return copy(buf, lastSent), rxInfo(-64), nil
			}).Times(1)

			report, err := ops.LinkTest(context.Background(), device, opts)
			Expect(err).To(BeNil())
			Expect(report.Sent).To(Equal(uint32(2)))
			Expect(report.Received).To(Equal(uint32(1)))
			Expect(obs.rounds[1].Sent).To(BeTrue())
			Expect(obs.rounds[1].Received).To(BeFalse())
			Expect(obs.rounds[1].LocalRSSI).To(BeNil())
			// The round pause runs after lost rounds too.
			Expect(roundPauses()).To(Equal(2))
		})

		It("skips replies that echo the wrong index", func() {
			opts.Rounds = 1

			recordTransmits(1)
			device.EXPECT().StartReceive().Return(nil)
			device.EXPECT().CheckReceive(true).Return(true, nil)
			device.EXPECT().GetReceived(gomock.Any()).DoAndReturn(func(buf []byte) (int, radio.RxInfo, error) {
				binary.BigEndian.PutUint32(buf, 7)
				return 4, rxInfo(-50), nil
			})

			report, err := ops.LinkTest(context.Background(), device, opts)
			Expect(err).To(BeNil())
			Expect(report.Received).To(BeZero())
			Expect(report.LocalRSSI.Count()).To(BeZero())
		})

		It("treats a reply without the requested trailer as lost", func() {
			opts.Rounds = 1
			opts.ParseInfo = true

			recordTransmits(1)
			device.EXPECT().StartReceive().Return(nil)
			device.EXPECT().CheckReceive(true).Return(true, nil)
			device.EXPECT().GetReceived(gomock.Any()).DoAndReturn(func(buf []byte) (int, radio.RxInfo, error) {
				return copy(buf, lastSent), rxInfo(-50), nil
			})

			report, err := ops.LinkTest(context.Background(), device, opts)
			Expect(err).To(BeNil())
			Expect(report.Received).To(BeZero())
			Expect(report.LocalRSSI.Count()).To(BeZero())
			Expect(report.RemoteRSSI.Count()).To(BeZero())
		})
	})

	Context("when the device fails", func() {
		It("aborts mid-test on a receive fault", func() {
			opts.Rounds = 2
			polls := 0

			recordTransmits(2)
			device.EXPECT().StartReceive().Return(nil).Times(2)
			device.EXPECT().CheckReceive(true).DoAndReturn(func(bool) (bool, error) {
				polls++
				if polls > 1 {
					return false, errors.New("spi fault")
				}
				return true, nil
			}).Times(2)
			device.EXPECT().GetReceived(gomock.Any()).DoAndReturn(func(buf []byte) (int, radio.RxInfo, error) {
				return copy(buf, lastSent), rxInfo(-66), nil
			}).Times(1)

			report, err := ops.LinkTest(context.Background(), device, opts)
			Expect(report).To(BeNil())
			Expect(blocking.IsDeviceError(err)).To(BeTrue())
			Expect(obs.rounds).To(HaveLen(1))
		})

		It("aborts when a probe cannot be transmitted", func() {
			opts.Rounds = 3

			device.EXPECT().StartTransmit(gomock.Any()).Return(errors.New("fifo jam"))
			device.EXPECT().StartReceive().Times(0)

			report, err := ops.LinkTest(context.Background(), device, opts)
			Expect(report).To(BeNil())
			Expect(blocking.IsDeviceError(err)).To(BeTrue())
			Expect(obs.rounds).To(BeEmpty())
		})
	})
})
