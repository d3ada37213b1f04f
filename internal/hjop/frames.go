package hjop

import (
	"context"
	"log/slog"

	"github.com/sweeney/dc01-interlock/internal/hostlink"
	"github.com/sweeney/dc01-interlock/internal/logic"
	"github.com/sweeney/dc01-interlock/internal/selftest"
)

// SupportedVersions lists the firmware versions this tool understands.
var SupportedVersions = []string{"1.0"}

// LogFrame logs one device message. State reports log at warning level
// unless the device is in NormalOp with no failure and no warnings.
func LogFrame(logger *slog.Logger, f hostlink.Frame) {
	switch f.Code {
	case hostlink.MsgState:
		st, err := hostlink.ParseState(f.Payload)
		if err != nil {
			logger.Debug("Bad state message", "err", err)
			return
		}
		level := slog.LevelInfo
		if st.Mode != uint8(logic.ModeNormalOp) || st.Failure != 0 || st.Warnings != 0 {
			level = slog.LevelWarn
		}
		logger.Log(context.Background(), level, "Received state",
			"mode", logic.Mode(st.Mode).String(),
			"dcc_connected", st.Connected,
			"dcc_at_least_one", st.DCCActive,
			"failure_code", st.Failure,
			"warnings", st.Warnings,
		)

	case hostlink.MsgInfo:
		info, err := hostlink.ParseInfo(f.Payload)
		if err != nil {
			logger.Debug("Bad info message", "err", err)
			return
		}
		logger.Info("Received DC-01 info", "fw", "v"+info.String())
		if !supported(info.String()) {
			logger.Warn("DC-01 FW version is not supported (outdated version?)", "fw", info.String())
		}

	case hostlink.MsgSelfTest:
		rep, err := hostlink.ParseSelfTest(f.Payload)
		if err != nil {
			logger.Debug("Bad self-test message", "err", err)
			return
		}
		logger.Info("Received BRTest state",
			"state", describeSelfTest(selftest.State(rep.State)),
			"step", selftest.Step(rep.Step).String(),
			"error", selftest.Error(rep.Error).String(),
		)

	default:
		logger.Debug("Received unknown message", "frame", f.String())
	}
}

func supported(version string) bool {
	for _, v := range SupportedVersions {
		if v == version {
			return true
		}
	}
	return false
}

func describeSelfTest(s selftest.State) string {
	switch s {
	case selftest.StateNotYetRun:
		return "not yet run"
	case selftest.StateInProgress:
		return "in progress"
	case selftest.StateFinished:
		return "successfully completed"
	case selftest.StateFail:
		return "failed"
	case selftest.StateInterrupted:
		return "interrupted due to DCC absence"
	}
	return "unknown"
}
