package regs

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/cmdstream/stream"
)

// Stage is a programmable shader stage.
type Stage uint8

// Shader stages.
const (
	StageVertex Stage = iota
	StageTessCtrl
	StageTessEval
	StageGeometry
	StageFragment
	StageTask
	StageMesh
	StageCompute

	StageCount
)

var stageNames = [StageCount]string{
	"vertex", "tess-ctrl", "tess-eval", "geometry", "fragment", "task", "mesh", "compute",
}

// String returns the stage name.
func (s Stage) String() string {
	if s < StageCount {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", uint8(s))
}

// Fixed user data slot assignments shared by every stage.
const (
	UserDataDescriptors   = 0 // lo, hi of the descriptor table
	UserDataPushConstants = 2 // lo, hi of the push constant block
	UserDataStreamout     = 4 // lo, hi of the streamout buffer table
	UserDataDrawID        = 6 // draw index / base vertex for indirect draws
	UserDataGangSem       = 7 // lo, hi of the gang semaphore (task and mesh)
	UserDataShaderQuery   = 9 // pipeline statistics enable
)

// StageRegs is the register layout of one stage.
type StageRegs struct {
	Stage    Stage
	PgmLo    uint32
	PgmHi    uint32
	Rsrc1    uint32
	Rsrc2    uint32
	UserData uint32
	Slots    int

	// Engine is the stream the stage's registers are written to.
	Engine stream.Engine

	// Mask is the gputypes stage mask that selects this stage for push
	// constants and descriptor visibility.
	Mask gputypes.ShaderStage

	// Compute is set for stages launched by the compute dispatcher.
	Compute bool
}

// Stages is the stage descriptor table, indexed by Stage.
var Stages [StageCount]StageRegs

func init() {
	for s := Stage(0); s < StageCount; s++ {
		base := stageBase + uint32(s)*stageRegs
		Stages[s] = StageRegs{
			Stage:    s,
			PgmLo:    base + stagePgmLo,
			PgmHi:    base + stagePgmHi,
			Rsrc1:    base + stageRsrc1,
			Rsrc2:    base + stageRsrc2,
			UserData: base + stageUserData,
			Slots:    UserDataSlots,
			Engine:   stream.Primary,
			Mask:     gputypes.ShaderStageVertex,
		}
	}
	Stages[StageFragment].Mask = gputypes.ShaderStageFragment
	Stages[StageCompute].Mask = gputypes.ShaderStageCompute
	Stages[StageCompute].Compute = true
	Stages[StageTask].Engine = stream.Auxiliary
	Stages[StageTask].Mask = gputypes.ShaderStageCompute
	Stages[StageTask].Compute = true
}

// UserDataReg returns the register of user data slot i of the stage.
func (r StageRegs) UserDataReg(slot int) uint32 {
	return r.UserData + uint32(slot)
}

// GraphicsStages are the stages bound by a graphics pipeline, in emission order.
var GraphicsStages = []Stage{
	StageVertex, StageTessCtrl, StageTessEval, StageGeometry, StageMesh, StageFragment,
}
