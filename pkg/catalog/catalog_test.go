package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/openground/records/pkg/catalog"
	"github.com/openground/records/pkg/limits"
	"github.com/openground/records/pkg/log"
	"github.com/openground/records/pkg/log/mocks"
	"github.com/openground/records/pkg/packet"
	"github.com/openground/records/pkg/structure"
)

// idPacket builds TARGET NAME as OPCODE (UINT 8, ID id) followed by
// DATA (UINT 24).
func idPacket(t *testing.T, target, name string, id uint64) *packet.Packet {
	t.Helper()
	p := packet.New(target, name, structure.BigEndian)
	op, _, err := p.AppendItem("OPCODE", 8, structure.Uint)
	require.NoError(t, err)
	require.NoError(t, p.SetIDValue(op.Name(), id))
	_, _, err = p.AppendItem("DATA", 24, structure.Uint)
	require.NoError(t, err)
	return p
}

func TestIdentify(t *testing.T) {
	cmds := catalog.NewCommands()
	pkt1 := idPacket(t, "INST", "PKT1", 1)
	cmds.Add(pkt1)
	cmds.Add(idPacket(t, "INST", "PKT2", 2))

	assert.True(t, cmds.UniqueIDMode("INST"))

	p, ok := cmds.Identify([]byte{1, 2, 3, 4}, "INST")
	require.True(t, ok)
	assert.Equal(t, "PKT1", p.PacketName())
	assert.Equal(t, []byte{1, 2, 3, 4}, p.Buffer())
	assert.NotSame(t, pkt1, p, "identify returns a copy")
	assert.NotEqual(t, pkt1.InstanceID(), p.InstanceID())

	p, ok = cmds.Identify([]byte{2, 0, 0, 0})
	require.True(t, ok)
	assert.Equal(t, "PKT2", p.PacketName())

	_, ok = cmds.Identify([]byte{3, 0, 0, 0}, "INST")
	assert.False(t, ok)
	_, ok = cmds.Identify(nil, "INST")
	assert.False(t, ok)
	_, ok = cmds.Identify([]byte{1, 2, 3, 4}, "OTHER")
	assert.False(t, ok, "unknown targets are skipped")
}

func TestIdentifyShortBuffer(t *testing.T) {
	logger := mocks.NewMockLogger(t)
	logger.EXPECT().Log(mock.MatchedBy(func(ev log.Event) bool {
		return ev.Category == log.CategoryLength && ev.Level == log.LevelWarn &&
			ev.Length != nil && ev.Length.Expected == 4 && ev.Length.Actual == 2
	})).Run(func(ev log.Event) {
		assert.Equal(t, "INST PKT1 received with actual packet length of 2 but defined length of 4", ev.Message)
	}).Return().Once()

	cmds := catalog.NewCommandsWithConfig(catalog.Config{Logger: logger})
	cmds.Add(idPacket(t, "INST", "PKT1", 1))
	cmds.Add(idPacket(t, "INST", "PKT2", 2))

	p, ok := cmds.Identify([]byte{1, 2}, "INST")
	require.True(t, ok)
	assert.Equal(t, "PKT1", p.PacketName())
	assert.Equal(t, []byte{1, 2, 0, 0}, p.Buffer())
}

func TestIdentifyScanMode(t *testing.T) {
	cmds := catalog.NewCommands()
	cmds.Add(idPacket(t, "INST", "PKT1", 1))

	p3 := packet.New("INST", "PKT3", structure.BigEndian)
	_, _, err := p3.AppendItem("HDR", 8, structure.Uint)
	require.NoError(t, err)
	_, _, err = p3.AppendItem("KIND", 8, structure.Uint)
	require.NoError(t, err)
	require.NoError(t, p3.SetIDValue("KIND", 7))
	cmds.Add(p3)

	assert.False(t, cmds.UniqueIDMode("INST"))

	p, ok := cmds.Identify([]byte{9, 7})
	require.True(t, ok)
	assert.Equal(t, "PKT3", p.PacketName())

	p, ok = cmds.Identify([]byte{1, 7, 0, 0})
	require.True(t, ok)
	assert.Equal(t, "PKT1", p.PacketName(), "the first added match wins")
}

func TestIdentifyCatchallAndVirtual(t *testing.T) {
	cmds := catalog.NewCommands()
	cmds.Add(idPacket(t, "INST", "PKT1", 1))

	virtual := idPacket(t, "INST", "GHOST", 5)
	virtual.Virtual = true
	cmds.Add(virtual)

	_, ok := cmds.Identify([]byte{5, 0, 0, 0})
	assert.False(t, ok, "virtual packets never match")

	catchall := packet.New("INST", "UNKNOWN", structure.BigEndian)
	_, _, err := catchall.AppendItem("FIRST", 8, structure.Uint)
	require.NoError(t, err)
	cmds.Add(catchall)

	p, ok := cmds.Identify([]byte{5, 0, 0, 0})
	require.True(t, ok)
	assert.Equal(t, "UNKNOWN", p.PacketName())

	p, ok = cmds.Identify([]byte{1, 0, 0, 0})
	require.True(t, ok)
	assert.Equal(t, "PKT1", p.PacketName())
}

func TestIdentifyAcrossTargets(t *testing.T) {
	cmds := catalog.NewCommands()
	cmds.Add(idPacket(t, "A", "ONE", 1))
	cmds.Add(idPacket(t, "B", "TWO", 2))

	assert.Equal(t, []string{"A", "B"}, cmds.TargetNames())

	p, ok := cmds.Identify([]byte{2, 0, 0, 0})
	require.True(t, ok)
	assert.Equal(t, "B", p.TargetName())

	_, ok = cmds.Identify([]byte{2, 0, 0, 0}, "a")
	assert.False(t, ok)
}

func TestIdentifyInvalidate(t *testing.T) {
	cmds := catalog.NewCommands()
	cmds.Add(idPacket(t, "INST", "PKT1", 1))
	pkt2 := idPacket(t, "INST", "PKT2", 2)
	cmds.Add(pkt2)

	_, ok := cmds.Identify([]byte{2, 0, 0, 0})
	require.True(t, ok)

	require.NoError(t, pkt2.SetIDValue("OPCODE", 3))
	_, ok = cmds.Identify([]byte{3, 0, 0, 0})
	assert.False(t, ok, "the index is memoized until invalidated")

	cmds.Invalidate("inst")
	p, ok := cmds.Identify([]byte{3, 0, 0, 0})
	require.True(t, ok)
	assert.Equal(t, "PKT2", p.PacketName())
}

func TestRemove(t *testing.T) {
	cmds := catalog.NewCommands()
	cmds.Add(idPacket(t, "INST", "PKT1", 1))
	cmds.Add(idPacket(t, "INST", "PKT2", 2))

	_, ok := cmds.Identify([]byte{1, 0, 0, 0})
	require.True(t, ok)

	require.NoError(t, cmds.Remove("inst", "pkt1"))
	_, ok = cmds.Identify([]byte{1, 0, 0, 0})
	assert.False(t, ok)

	_, err := cmds.Packet("INST", "PKT1")
	assert.ErrorIs(t, err, catalog.ErrUnknownPacket)
	assert.EqualError(t, err, "Command packet 'INST PKT1' does not exist")

	require.NoError(t, cmds.Remove("INST", "PKT2"))
	assert.Empty(t, cmds.TargetNames())
	assert.ErrorIs(t, cmds.Remove("INST", "PKT2"), catalog.ErrUnknownTarget)
}

func TestLookup(t *testing.T) {
	tlm := catalog.NewTelemetry()
	tlm.Add(idPacket(t, "INST", "PKT1", 1))
	tlm.Add(idPacket(t, "INST", "PKT0", 0))

	p, err := tlm.Packet("inst", "pkt1")
	require.NoError(t, err)
	assert.Equal(t, "PKT1", p.PacketName())

	packets, err := tlm.Packets("INST")
	require.NoError(t, err)
	assert.Len(t, packets, 2)

	names, err := tlm.ItemNames("INST", "PKT1")
	require.NoError(t, err)
	assert.Equal(t, []string{"OPCODE", "DATA"}, names)

	_, err = tlm.Packets("NOPE")
	assert.EqualError(t, err, "Telemetry target 'NOPE' does not exist")

	_, _, err = tlm.PacketAndItem("INST", "PKT1", "nope")
	assert.ErrorIs(t, err, catalog.ErrUnknownItem)
	assert.ErrorIs(t, err, structure.ErrUnknownItem)
	assert.EqualError(t, err, "Telemetry item 'INST PKT1 NOPE' does not exist")

	_, it, err := tlm.PacketAndItem("INST", "PKT1", "data")
	require.NoError(t, err)
	assert.Equal(t, "DATA", it.Name())
}

// newCollect builds the INST COLLECT command:
//
//	OPCODE UINT 8    ID 1
//	VALUE  UINT 16   range 0..100, default 10
//	MODE   UINT 8    states SAFE=0 ARM=1, ARM hazardous
//	LABEL  STRING 64 default "none"
func newCollect(t *testing.T) *packet.Packet {
	t.Helper()
	p := packet.New("INST", "COLLECT", structure.BigEndian)
	op, _, err := p.AppendItem("OPCODE", 8, structure.Uint)
	require.NoError(t, err)
	require.NoError(t, p.SetIDValue(op.Name(), 1))

	value, _, err := p.AppendItem("VALUE", 16, structure.Uint)
	require.NoError(t, err)
	value.Minimum, value.Maximum, value.Default = 0, 100, 10

	mode, _, err := p.AppendItem("MODE", 8, structure.Uint)
	require.NoError(t, err)
	mode.AddState("SAFE", 0)
	mode.AddState("ARM", 1)
	mode.Default = "SAFE"
	mode.Hazardous = map[string]string{"ARM": "Arms the payload"}

	label, _, err := p.AppendItem("LABEL", 64, structure.String)
	require.NoError(t, err)
	label.Default = "none"
	return p
}

func TestBuildCmdDefaults(t *testing.T) {
	cmds := catalog.NewCommands()
	cmds.Add(newCollect(t))

	cmd, res, err := cmds.BuildCmd("inst", "collect", nil, true, false)
	require.NoError(t, err)
	assert.False(t, res.Hazardous)
	assert.Equal(t, []byte{1, 0, 10, 0, 'n', 'o', 'n', 'e', 0, 0, 0, 0}, cmd.Buffer())
	assert.Zero(t, cmd.ReceivedCount)
}

func TestBuildCmdRangeCheck(t *testing.T) {
	cmds := catalog.NewCommands()
	cmds.Add(newCollect(t))

	_, _, err := cmds.BuildCmd("INST", "COLLECT", map[string]any{"VALUE": 150}, true, false)
	var rerr *catalog.RangeError
	require.ErrorAs(t, err, &rerr)
	assert.ErrorIs(t, err, catalog.ErrOutOfRange)
	assert.EqualError(t, err, "Command parameter 'INST COLLECT VALUE' = 150 not in valid range of 0 to 100")

	cmd, _, err := cmds.BuildCmd("INST", "COLLECT", map[string]any{"VALUE": 150}, false, false)
	require.NoError(t, err)
	v, err := cmd.ReadValue("VALUE", packet.Raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(150), v)

	cmd, _, err = cmds.BuildCmd("INST", "COLLECT", map[string]any{"value": 100}, true, true)
	require.NoError(t, err)
	v, err = cmd.ReadValue("VALUE", packet.Raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), v)
}

func TestBuildCmdStatesAndHazards(t *testing.T) {
	cmds := catalog.NewCommands()
	cmds.Add(newCollect(t))

	cmd, res, err := cmds.BuildCmd("INST", "COLLECT", map[string]any{"MODE": "arm"}, true, false)
	require.NoError(t, err)
	assert.True(t, res.Hazardous)
	assert.Equal(t, "Arms the payload", res.HazardousDescription)
	v, err := cmd.ReadValue("MODE", packet.Raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)

	hz, desc, err := cmds.Hazardous(cmd)
	require.NoError(t, err)
	assert.True(t, hz)
	assert.Equal(t, "Arms the payload", desc)

	_, _, err = cmds.BuildCmd("INST", "COLLECT", map[string]any{"MODE": "BOGUS"}, true, false)
	var serr *packet.StateError
	require.ErrorAs(t, err, &serr)
	assert.ErrorIs(t, err, packet.ErrUnknownState)
	assert.Equal(t, []string{"SAFE", "ARM"}, serr.States)

	abort := idPacket(t, "INST", "ABORT", 9)
	abort.Hazardous = true
	abort.HazardousDescription = "Stops everything"
	cmds.Add(abort)
	_, res, err = cmds.BuildCmd("INST", "ABORT", nil, true, false)
	require.NoError(t, err)
	assert.Equal(t, catalog.BuildResult{Hazardous: true, HazardousDescription: "Stops everything"}, res)
}

func TestBuildCmdErrors(t *testing.T) {
	cmds := catalog.NewCommands()
	cmds.Add(newCollect(t))

	set := packet.New("INST", "SETLVL", structure.BigEndian)
	level, _, err := set.AppendItem("LEVEL", 8, structure.Uint)
	require.NoError(t, err)
	level.Required = true
	cmds.Add(set)

	_, _, err = cmds.BuildCmd("NOPE", "COLLECT", nil, true, false)
	assert.ErrorIs(t, err, catalog.ErrUnknownTarget)

	_, _, err = cmds.BuildCmd("INST", "NOPE", nil, true, false)
	assert.ErrorIs(t, err, catalog.ErrUnknownPacket)

	_, _, err = cmds.BuildCmd("INST", "COLLECT", map[string]any{"GAIN": 1}, true, false)
	assert.ErrorIs(t, err, catalog.ErrUnknownItem)
	assert.EqualError(t, err, "Command item 'INST COLLECT GAIN' does not exist")

	_, _, err = cmds.BuildCmd("INST", "SETLVL", nil, true, false)
	assert.ErrorIs(t, err, catalog.ErrMissingParameter)
	assert.EqualError(t, err, "Required command parameter 'INST SETLVL LEVEL' not given")

	cmd, _, err := cmds.BuildCmd("INST", "SETLVL", map[string]any{"level": 4}, true, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{4}, cmd.Buffer())

	_, _, err = cmds.BuildCmd("INST", "SETLVL", map[string]any{"LEVEL": 300}, false, false)
	assert.ErrorIs(t, err, structure.ErrOverflow)
}

func TestBuildCmdLeavesDefinitionUntouched(t *testing.T) {
	cmds := catalog.NewCommands()
	def := newCollect(t)
	cmds.Add(def)

	a, _, err := cmds.BuildCmd("INST", "COLLECT", map[string]any{"VALUE": 42}, true, false)
	require.NoError(t, err)
	b, _, err := cmds.BuildCmd("INST", "COLLECT", nil, true, false)
	require.NoError(t, err)

	va, err := a.ReadValue("VALUE", packet.Raw)
	require.NoError(t, err)
	vb, err := b.ReadValue("VALUE", packet.Raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), va)
	assert.Equal(t, uint64(10), vb)
}

func TestFormat(t *testing.T) {
	cmds := catalog.NewCommands()
	cmds.Add(newCollect(t))

	cmd, _, err := cmds.BuildCmd("INST", "COLLECT", map[string]any{"VALUE": 42, "MODE": "ARM", "LABEL": `say "hi"`}, true, false)
	require.NoError(t, err)

	s, err := cmds.Format(cmd)
	require.NoError(t, err)
	assert.Equal(t, `cmd("INST COLLECT with OPCODE 1, VALUE 42, MODE 'ARM', LABEL 'say 'hi''")`, s)

	s, err = cmds.Format(cmd, "opcode", "label")
	require.NoError(t, err)
	assert.Equal(t, `cmd("INST COLLECT with VALUE 42, MODE 'ARM'")`, s)

	label, err := cmd.Item("LABEL")
	require.NoError(t, err)
	label.Obfuscate = true
	s, err = cmds.Format(cmd, "OPCODE", "VALUE", "MODE")
	require.NoError(t, err)
	assert.Equal(t, `cmd("INST COLLECT with LABEL *****")`, s)

	s, err = cmds.Format(cmd, "OPCODE", "VALUE", "MODE", "LABEL")
	require.NoError(t, err)
	assert.Equal(t, `cmd("INST COLLECT")`, s)
}

// newHealth builds INST HEALTH: OPCODE (UINT 8, ID 1) and TEMP (INT 8,
// DEFAULT limits 1 2 4 5).
func newHealth(t *testing.T) *packet.Packet {
	t.Helper()
	p := packet.New("INST", "HEALTH", structure.BigEndian)
	op, _, err := p.AppendItem("OPCODE", 8, structure.Uint)
	require.NoError(t, err)
	require.NoError(t, p.SetIDValue(op.Name(), 1))
	_, _, err = p.AppendItem("TEMP", 8, structure.Int)
	require.NoError(t, err)
	th, err := limits.NewThresholds(1, 2, 4, 5)
	require.NoError(t, err)
	require.NoError(t, p.SetLimits("TEMP", limits.DefaultSet, th))
	return p
}

func TestTelemetryUpdate(t *testing.T) {
	tlm := catalog.NewTelemetry()
	health := newHealth(t)
	tlm.Add(health)
	tlm.Add(idPacket(t, "INST", "STATUS", 2))

	p, ok := tlm.IdentifyAndUpdate([]byte{1, 3})
	require.True(t, ok)
	assert.Same(t, health, p, "telemetry updates the registered packet")
	assert.Equal(t, uint64(1), p.ReceivedCount)
	assert.False(t, p.ReceivedTime.IsZero())

	v, err := tlm.Value("inst", "health", "temp", packet.Converted)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	_, err = tlm.Update("INST", "HEALTH", []byte{1, 0xFE})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), health.ReceivedCount)
	v, err = tlm.Value("INST", "HEALTH", "TEMP", packet.Raw)
	require.NoError(t, err)
	assert.Equal(t, int64(-2), v)

	require.NoError(t, tlm.SetValue("INST", "HEALTH", "TEMP", 4, packet.Converted))
	v, err = tlm.Value("INST", "HEALTH", "TEMP", packet.Raw)
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)

	_, ok = tlm.IdentifyAndUpdate([]byte{7, 0})
	assert.False(t, ok)
	_, err = tlm.Update("INST", "NOPE", nil)
	assert.ErrorIs(t, err, catalog.ErrUnknownPacket)

	tlm.Reset()
	assert.Zero(t, health.ReceivedCount)
	assert.True(t, health.ReceivedTime.IsZero())
}

func TestTelemetryLimits(t *testing.T) {
	rec := &log.Recorder{}
	mgr := limits.NewManagerWithConfig(limits.Config{Logger: rec})
	tlm := catalog.NewTelemetryWithConfig(catalog.Config{Limits: mgr, Logger: rec})

	type change struct {
		item     string
		old, new limits.State
	}
	var changes []change
	tlm.SetLimitsChangeCallback(func(_ *packet.Packet, it *packet.Item, old limits.State, _ any, _ bool) {
		changes = append(changes, change{it.Name(), old, it.Limits.State})
	})
	tlm.Add(newHealth(t))

	ref := limits.ItemRef{Target: "INST", Packet: "HEALTH", Item: "TEMP"}
	assert.Equal(t, []limits.ItemRef{ref}, mgr.Items())

	_, err := tlm.Update("INST", "HEALTH", []byte{1, 6})
	require.NoError(t, err)
	require.NoError(t, tlm.CheckLimits("INST", "HEALTH"))
	assert.Equal(t, []change{{"TEMP", limits.Stale, limits.RedHigh}}, changes)

	wide, err := limits.NewThresholds(0, 1, 10, 20)
	require.NoError(t, err)
	require.NoError(t, mgr.Set(context.Background(), ref, "TVAC", wide))
	require.NoError(t, mgr.SetActive("TVAC"))
	require.NoError(t, tlm.CheckLimits("INST", "HEALTH"))
	assert.Equal(t, change{"TEMP", limits.RedHigh, limits.Green}, changes[len(changes)-1])

	require.NoError(t, mgr.Disable(ref))
	_, err = tlm.Update("INST", "HEALTH", []byte{1, 30})
	require.NoError(t, err)
	n := len(changes)
	require.NoError(t, tlm.CheckLimits("INST", "HEALTH"))
	assert.Len(t, changes, n, "disabled items are not checked")

	require.NoError(t, tlm.Remove("INST", "HEALTH"))
	assert.Empty(t, mgr.Items())
	assert.True(t, errors.Is(tlm.CheckLimits("INST", "HEALTH"), catalog.ErrUnknownTarget))
}
