package auxbus

import "fmt"

// Target is a single-byte logical bus address identifying the sender or
// receiver of a packet.
type Target byte

// Bus addresses.
const (
	TargetAny       Target = 0x00
	TargetMainBoard Target = 0x01
	TargetHC        Target = 0x04
	TargetHCPlus    Target = 0x0d
	TargetAZM       Target = 0x10
	TargetALT       Target = 0x11
	TargetFocuser   Target = 0x12
	TargetApp       Target = 0x20
	TargetNexRemote Target = 0x22
	TargetGPS       Target = 0xb0
	TargetWiFi      Target = 0xb5
	TargetBattery   Target = 0xb6
	TargetCharger   Target = 0xb7
	TargetLight     Target = 0xbf
)

var targetNames = map[Target]string{
	TargetAny:       "ANY",
	TargetMainBoard: "MB",
	TargetHC:        "HC",
	TargetHCPlus:    "HC+",
	TargetAZM:       "AZM",
	TargetALT:       "ALT",
	TargetFocuser:   "FOCUSER",
	TargetApp:       "APP",
	TargetNexRemote: "NEX_REMOTE",
	TargetGPS:       "GPS",
	TargetWiFi:      "WIFI",
	TargetBattery:   "BAT",
	TargetCharger:   "CHG",
	TargetLight:     "LIGHT",
}

// String returns the conventional name of the address, or its hex code if
// unknown.
func (t Target) String() string {
	if name, ok := targetNames[t]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", byte(t))
}

// Command is a single-byte opcode understood by a specific target. The
// protocol layer treats commands as opaque: they are encoded on the wire and
// used to match replies to requests, nothing more.
type Command byte

// Known command codes for the motor and focuser targets. The catalogue is not
// exhaustive; any byte value is a valid Command.
const (
	CmdGetPosition     Command = 0x01
	CmdGotoFast        Command = 0x02
	CmdSetPosition     Command = 0x04
	CmdSetPosGuideRate Command = 0x06
	CmdSetNegGuideRate Command = 0x07
	CmdLevelStart      Command = 0x0b
	CmdSlewDone        Command = 0x13
	CmdGotoSlow        Command = 0x17
	CmdSeekIndex       Command = 0x19
	CmdMovePos         Command = 0x24
	CmdMoveNeg         Command = 0x25
	CmdFocCalibEnable  Command = 0x2a
	CmdFocCalibDone    Command = 0x2b
	CmdFocGetHSPos     Command = 0x2c
	CmdGetVersion      Command = 0xfe
)

// String returns the command code in hex.
func (c Command) String() string {
	return fmt.Sprintf("0x%02X", byte(c))
}
