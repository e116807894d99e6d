package motorcan

import (
	"context"
	"sync"
	"time"

	"github.com/go-daq/canbus"
	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	viamutils "go.viam.com/utils"
	"golang.org/x/sys/unix"

	"github.com/paladin1013/arx5-sdk/config"
)

// ErrGatewayClosed is returned by Gateway operations after Close has run.
var ErrGatewayClosed = errors.New("motorcan: gateway closed")

// Gateway is the CAN transport for one SocketCAN interface: it owns a send
// socket, a receive socket filtered to the motor IDs it cares about, and a
// background goroutine decoding telemetry into a shared map. It is the
// sole point of contact with the motor bus; the servo controllers never
// touch canbus directly.
type Gateway struct {
	iface  string
	logger logging.Logger

	sendSocket *canbus.Socket

	telemMu sync.RWMutex
	telem   map[uint32]MotorMsg

	cancel  context.CancelFunc
	workers sync.WaitGroup
}

// Open binds a send and a filtered receive socket on the given SocketCAN
// interface and starts the receive goroutine. motorIDs is the set of CAN
// IDs telemetry should be accepted from.
func Open(iface string, motorIDs []uint32, logger logging.Logger) (*Gateway, error) {
	sendSocket, err := canbus.New()
	if err != nil {
		return nil, errors.Wrap(err, "opening send socket")
	}
	if err := sendSocket.Bind(iface); err != nil {
		return nil, errors.Wrapf(err, "binding send socket to %s", iface)
	}

	recvSocket, err := canbus.New()
	if err != nil {
		return nil, errors.Wrap(err, "opening receive socket")
	}
	filters := make([]unix.CanFilter, len(motorIDs))
	for i, id := range motorIDs {
		filters[i] = unix.CanFilter{Id: id, Mask: unix.CAN_SFF_MASK}
	}
	if err := recvSocket.SetFilters(filters); err != nil {
		return nil, errors.Wrap(err, "setting receive filters")
	}
	if err := recvSocket.Bind(iface); err != nil {
		return nil, errors.Wrapf(err, "binding receive socket to %s", iface)
	}

	ctx, cancel := context.WithCancel(context.Background())
	gw := &Gateway{
		iface:      iface,
		logger:     logger,
		sendSocket: sendSocket,
		telem:      make(map[uint32]MotorMsg),
		cancel:     cancel,
	}

	gw.workers.Add(1)
	viamutils.ManagedGo(func() {
		gw.receiveLoop(ctx, recvSocket)
	}, gw.workers.Done)

	return gw, nil
}

func (g *Gateway) receiveLoop(ctx context.Context, socket *canbus.Socket) {
	for ctx.Err() == nil {
		frame, err := socket.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			g.logger.Debugw("motorcan receive error", "error", err)
			continue
		}
		msg := decodeMotorMsg(frame)
		g.telemMu.Lock()
		g.telem[frame.ID] = msg
		g.telemMu.Unlock()
	}
}

// EnableDMMotor sends the DM-family enable handshake to a motor id and
// waits briefly for it to take effect, mirroring the ARX5 SDK's
// enable_DM_motor + sleep_us(1000).
func (g *Gateway) EnableDMMotor(motorID uint32) error {
	if _, err := g.sendSocket.Send(enableFrame(motorID)); err != nil {
		return errors.Wrapf(err, "enabling DM motor %d", motorID)
	}
	time.Sleep(time.Millisecond)
	return nil
}

// ZeroMotorOffset sends the DM-family "zero current position" command,
// the non-interactive primitive behind CalibrateGripper/CalibrateJoint.
func (g *Gateway) ZeroMotorOffset(motorID uint32) error {
	if _, err := g.sendSocket.Send(zeroOffsetFrame(motorID)); err != nil {
		return errors.Wrapf(err, "zeroing motor %d offset", motorID)
	}
	return nil
}

// SendECMotorCmd encodes and transmits one EC-family set-point frame:
// position, velocity, Kp, Kd and a feed-forward current derived from the
// commanded torque and the motor's torque constant.
func (g *Gateway) SendECMotorCmd(motorID uint32, pos, vel, kp, kd, torque float64) error {
	current := torque / torqueConstantFor(config.MotorECA4310)
	payload := ecEncoder.encode(pos, vel, kp, kd, current)
	_, err := g.sendSocket.Send(newSetpointFrame(motorID, payload))
	return errors.Wrapf(err, "sending EC cmd to motor %d", motorID)
}

// SendDMMotorCmd encodes and transmits one DM-family set-point frame for
// the given motor type (DM_J4310 or DM_J4340), converting torque to
// feed-forward current via that motor's torque constant.
func (g *Gateway) SendDMMotorCmd(motorID uint32, motorType config.MotorType, pos, vel, kp, kd, torque float64) error {
	current := torque / torqueConstantFor(motorType)
	payload := dmEncoder.encode(pos, vel, kp, kd, current)
	_, err := g.sendSocket.Send(newSetpointFrame(motorID, payload))
	return errors.Wrapf(err, "sending DM cmd to motor %d", motorID)
}

// GetMotorMsg returns the most recently received telemetry for a motor id.
// The zero value is returned, with ok=false, if no telemetry has arrived
// yet.
func (g *Gateway) GetMotorMsg(motorID uint32) (MotorMsg, bool) {
	g.telemMu.RLock()
	defer g.telemMu.RUnlock()
	msg, ok := g.telem[motorID]
	return msg, ok
}

// Close stops the receive goroutine and releases both sockets.
func (g *Gateway) Close() error {
	g.cancel()
	g.workers.Wait()
	return g.sendSocket.Close()
}

// Shared-gateway registry, adapted from the teacher's singleton driver
// pattern (dynamixel.GetDriver/ReleaseDriver) so one CAN interface can be
// shared between an arm's arm.Arm and gripper.Gripper resources without
// double-binding the socket.

var (
	sharedMu    sync.Mutex
	sharedGW    = map[string]*Gateway{}
	sharedCount = map[string]int{}
)

// GetShared returns a reference-counted Gateway for the given interface,
// opening it on first use and reusing it on subsequent calls.
func GetShared(iface string, motorIDs []uint32, logger logging.Logger) (*Gateway, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if gw, ok := sharedGW[iface]; ok {
		sharedCount[iface]++
		return gw, nil
	}

	gw, err := Open(iface, motorIDs, logger)
	if err != nil {
		return nil, err
	}
	sharedGW[iface] = gw
	sharedCount[iface] = 1
	return gw, nil
}

// ReleaseShared decrements the reference count for iface and closes the
// underlying Gateway once no caller holds it anymore.
func ReleaseShared(iface string) error {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	gw, ok := sharedGW[iface]
	if !ok {
		return nil
	}
	sharedCount[iface]--
	if sharedCount[iface] > 0 {
		return nil
	}
	delete(sharedGW, iface)
	delete(sharedCount, iface)
	return gw.Close()
}
