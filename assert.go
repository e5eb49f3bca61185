package quads

import "fmt"

// ContractViolation is the panic value raised when the renderer is misused:
// depth out of range, calls from a thread other than the owner, images with
// an unsupported channel count, or drawing into an image that is not a
// render target. These are programming errors and are never returned as
// errors.
type ContractViolation struct {
	// Check names the violated contract, e.g. "z-range".
	Check string

	// Msg describes the offending value.
	Msg string
}

func (v *ContractViolation) Error() string {
	return "quads: contract violation (" + v.Check + "): " + v.Msg
}

// Contract names carried by ContractViolation.Check.
const (
	CheckZRange       = "z-range"
	CheckThread       = "thread"
	CheckChannels     = "channels"
	CheckRenderTarget = "render-target"
	CheckBounds       = "bounds"
	CheckBoundSlot    = "bound-slot"
	CheckDestroyed    = "destroyed"
)

func violate(check, format string, args ...any) {
	v := &ContractViolation{Check: check, Msg: fmt.Sprintf(format, args...)}
	Logger().Error("contract violation", "check", check, "msg", v.Msg)
	panic(v)
}

func checkZ(z int32) {
	if z < MinZ || z > MaxZ {
		violate(CheckZRange, "z = %d outside [%d, %d]", z, MinZ, MaxZ)
	}
}
