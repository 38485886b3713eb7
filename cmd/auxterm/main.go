// auxterm is an interactive terminal for the AUX bus: open a channel, send
// command packets to addressed peripherals, and inspect the replies.
package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"

	"github.com/skytools/auxbus/pkg/auxbus"
	"github.com/skytools/auxbus/pkg/channel/mqtt"
	"github.com/skytools/auxbus/pkg/channel/serial"
	"github.com/skytools/auxbus/pkg/channel/ws"
)

var sourceAddr uint

func init() {
	flag.UintVar(&sourceAddr, "source", uint(auxbus.TargetApp), "bus address to speak as")
}

type terminal struct {
	comm   *auxbus.Communicator
	ch     auxbus.Channel
	closer io.Closer
	name   string
}

func sessionLabel() string {
	id, err := machineid.ID()
	if err != nil || len(id) < 8 {
		return "auxterm"
	}
	return "auxterm-" + id[:8]
}

func (t *terminal) open(c *ishell.Context) {
	if len(c.Args) < 1 {
		c.Err(fmt.Errorf("usage: open DEVICE|mqtt://...|ws://... [BAUD]"))
		return
	}
	if t.ch != nil {
		c.Err(fmt.Errorf("already open: %s", t.name))
		return
	}

	target := c.Args[0]
	var (
		ch     auxbus.Channel
		closer io.Closer
		err    error
	)
	switch {
	case strings.HasPrefix(target, "mqtt://"), strings.HasPrefix(target, "tcp://"), strings.HasPrefix(target, "ssl://"):
		var mch *mqtt.Channel
		mch, err = mqtt.Dial(target)
		ch, closer = mch, mch
	case strings.HasPrefix(target, "ws://"), strings.HasPrefix(target, "wss://"):
		var wch *ws.Channel
		wch, err = ws.Dial(target)
		ch, closer = wch, wch
	default:
		baud := 19200
		if len(c.Args) > 1 {
			if baud, err = strconv.Atoi(c.Args[1]); err != nil {
				c.Err(fmt.Errorf("invalid baud rate %q", c.Args[1]))
				return
			}
		}
		var port *serial.Port
		port, err = serial.Open(serial.Config{Name: target, Baud: baud})
		ch, closer = port, port
	}
	if err != nil {
		c.Err(err)
		return
	}

	t.ch, t.closer, t.name = ch, closer, target
	c.Printf("open %s as %s\n", target, t.comm.Source)
}

func (t *terminal) close(c *ishell.Context) {
	if t.ch == nil {
		return
	}
	if err := t.closer.Close(); err != nil {
		c.Err(err)
	}
	t.ch, t.closer, t.name = nil, nil, ""
}

func (t *terminal) send(c *ishell.Context) {
	if t.ch == nil {
		c.Err(fmt.Errorf("not open"))
		return
	}
	if len(c.Args) < 2 {
		c.Err(fmt.Errorf("usage: send TARGET CMD [DATA...]"))
		return
	}
	dest, err := parseTarget(c.Args[0])
	if err != nil {
		c.Err(err)
		return
	}
	cmd, err := parseByte(c.Args[1])
	if err != nil {
		c.Err(err)
		return
	}
	data := make([]byte, 0, len(c.Args)-2)
	for _, arg := range c.Args[2:] {
		b, err := parseByte(arg)
		if err != nil {
			c.Err(err)
			return
		}
		data = append(data, b)
	}

	reply, err := t.comm.SendCommand(t.ch, dest, auxbus.Command(cmd), data)
	if err != nil {
		c.Err(err)
		return
	}
	if len(reply) == 0 {
		c.Println("OK")
		return
	}
	c.Printf("OK <%s>\n", auxbus.HexStr(reply))
}

func (t *terminal) version(c *ishell.Context) {
	if t.ch == nil {
		c.Err(fmt.Errorf("not open"))
		return
	}
	if len(c.Args) < 1 {
		c.Err(fmt.Errorf("usage: ver TARGET"))
		return
	}
	dest, err := parseTarget(c.Args[0])
	if err != nil {
		c.Err(err)
		return
	}
	reply, err := t.comm.Command(t.ch, dest, auxbus.CmdGetVersion)
	if err != nil {
		c.Err(err)
		return
	}
	if len(reply) >= 2 {
		c.Printf("%s version %d.%d <%s>\n", dest, reply[0], reply[1], auxbus.HexStr(reply))
		return
	}
	c.Printf("%s version <%s>\n", dest, auxbus.HexStr(reply))
}

var targetsByName = map[string]auxbus.Target{
	"any":        auxbus.TargetAny,
	"mb":         auxbus.TargetMainBoard,
	"hc":         auxbus.TargetHC,
	"hc+":        auxbus.TargetHCPlus,
	"azm":        auxbus.TargetAZM,
	"alt":        auxbus.TargetALT,
	"focuser":    auxbus.TargetFocuser,
	"app":        auxbus.TargetApp,
	"nex_remote": auxbus.TargetNexRemote,
	"gps":        auxbus.TargetGPS,
	"wifi":       auxbus.TargetWiFi,
	"bat":        auxbus.TargetBattery,
	"chg":        auxbus.TargetCharger,
	"light":      auxbus.TargetLight,
}

func parseTarget(s string) (auxbus.Target, error) {
	if t, ok := targetsByName[strings.ToLower(s)]; ok {
		return t, nil
	}
	b, err := parseByte(s)
	if err != nil {
		return 0, fmt.Errorf("unknown target %q", s)
	}
	return auxbus.Target(b), nil
}

func parseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid byte %q", s)
	}
	return byte(v), nil
}

func main() {
	flag.Parse()

	label := sessionLabel()
	glog.V(1).Infof("session %s", label)

	term := &terminal{
		comm: auxbus.NewCommunicator(
			auxbus.WithSource(auxbus.Target(sourceAddr)),
			auxbus.WithDevice(label),
		),
	}

	shell := ishell.New()
	shell.SetPrompt("aux> ")
	shell.AddCmd(&ishell.Cmd{
		Name: "open",
		Help: "DEVICE|mqtt://...|ws://... [BAUD]",
		Func: term.open,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "close",
		Help: "close the channel",
		Func: term.close,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "send",
		Help: "TARGET CMD [DATA...] (hex bytes)",
		Func: term.send,
	})
	shell.AddCmd(&ishell.Cmd{
		Name:    "ver",
		Aliases: []string{"version"},
		Help:    "TARGET",
		Func:    term.version,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "targets",
		Help: "list known bus addresses",
		Func: func(c *ishell.Context) {
			for name, t := range targetsByName {
				c.Printf("%-10s 0x%02X\n", name, byte(t))
			}
		},
	})

	shell.Run()
	if term.ch != nil {
		_ = term.closer.Close()
	}
	glog.Flush()
}
