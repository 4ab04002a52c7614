package midi

import (
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"go.uber.org/zap"
)

// listen starts delivering every message arriving on in to onMessage. SysEx
// and MIDI time code (including timing clock) are passed through; active
// sensing stays filtered. Fragments the parser cannot turn into a message,
// such as a lone 0xF7, are skipped.
func listen(in drivers.In, name string, onMessage func(raw []byte), log *zap.Logger) (stop func(), err error) {
	return gomidi.ListenTo(in, func(msg gomidi.Message, _ int32) {
		if len(msg) == 0 {
			return
		}
		onMessage(msg)
	},
		gomidi.UseSysEx(),
		gomidi.UseTimeCode(),
		gomidi.HandleError(func(listenErr error) {
			log.Warn("midi listener error", zap.String("device", name), zap.Error(listenErr))
		}),
	)
}
