package domain

// BlockType identifies the training protocol used for a completed set.
type BlockType string

const (
	BlockTypeStraightSet   BlockType = "straight_set"
	BlockTypeSuperset      BlockType = "superset"
	BlockTypeGiantSet      BlockType = "giant_set"
	BlockTypeAMRAP         BlockType = "amrap"
	BlockTypeDropSet       BlockType = "drop_set"
	BlockTypeClusterSet    BlockType = "cluster_set"
	BlockTypeRestPause     BlockType = "rest_pause"
	BlockTypePreExhaust    BlockType = "pre_exhaust"
	BlockTypeEMOM          BlockType = "emom"
	BlockTypeTabata        BlockType = "tabata"
	BlockTypeForTime       BlockType = "for_time"
	BlockTypeHeartRateZone BlockType = "heart_rate_zone"
)

// BlockTypes lists every supported tag.
var BlockTypes = []BlockType{
	BlockTypeStraightSet,
	BlockTypeSuperset,
	BlockTypeGiantSet,
	BlockTypeAMRAP,
	BlockTypeDropSet,
	BlockTypeClusterSet,
	BlockTypeRestPause,
	BlockTypePreExhaust,
	BlockTypeEMOM,
	BlockTypeTabata,
	BlockTypeForTime,
	BlockTypeHeartRateZone,
}

// ParseBlockType maps a wire tag to a BlockType. An empty tag defaults to
// straight_set; anything else outside the known set is rejected.
func ParseBlockType(tag string) (BlockType, error) {
	if tag == "" {
		return BlockTypeStraightSet, nil
	}
	for _, bt := range BlockTypes {
		if BlockType(tag) == bt {
			return bt, nil
		}
	}
	return "", &UnsupportedBlockTypeError{Tag: tag}
}

// tracksOneRepMax reports whether the tag has a single dominant weighted
// effort worth feeding into the one-rep-max estimate.
func (bt BlockType) tracksOneRepMax() bool {
	switch bt {
	case BlockTypeStraightSet, BlockTypeSuperset, BlockTypeDropSet, BlockTypeClusterSet, BlockTypeRestPause:
		return true
	}
	return false
}
