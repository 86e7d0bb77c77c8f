// Package pose turns raw detector landmarks into the named, pixel-space
// keypoints and derived 3D quantities carried by inference results.
package pose

// The detector reports 33 body landmarks; clients render the 17-keypoint
// subset in MoveNet order. movenetIndices maps the 17 output slots to
// detector landmark indices.
var movenetIndices = [17]int{0, 2, 5, 7, 8, 11, 12, 13, 14, 15, 16, 23, 24, 25, 26, 27, 28}

// BodyKeypointNames lists the 17 output keypoints in MoveNet order.
var BodyKeypointNames = [17]string{
	"nose",
	"left_eye",
	"right_eye",
	"left_ear",
	"right_ear",
	"left_shoulder",
	"right_shoulder",
	"left_elbow",
	"right_elbow",
	"left_wrist",
	"right_wrist",
	"left_hip",
	"right_hip",
	"left_knee",
	"right_knee",
	"left_ankle",
	"right_ankle",
}

// HandLandmarkNames lists the 21 hand keypoints in detector order.
var HandLandmarkNames = [21]string{
	"wrist",
	"thumb_cmc",
	"thumb_mcp",
	"thumb_ip",
	"thumb_tip",
	"index_mcp",
	"index_pip",
	"index_dip",
	"index_tip",
	"middle_mcp",
	"middle_pip",
	"middle_dip",
	"middle_tip",
	"ring_mcp",
	"ring_pip",
	"ring_dip",
	"ring_tip",
	"pinky_mcp",
	"pinky_pip",
	"pinky_dip",
	"pinky_tip",
}

// keyJoints maps derived-coordinate names to detector world landmark indices.
var keyJoints = map[string]int{
	"left_shoulder":  11,
	"right_shoulder": 12,
	"left_elbow":     13,
	"right_elbow":    14,
	"left_wrist":     15,
	"right_wrist":    16,
	"left_hip":       23,
	"right_hip":      24,
	"left_knee":      25,
	"right_knee":     26,
	"left_ankle":     27,
	"right_ankle":    28,
}

// jointTriples names each derived angle and the (end, vertex, end) detector
// landmark indices spanning it.
var jointTriples = map[string][3]int{
	"left_elbow":     {11, 13, 15},
	"right_elbow":    {12, 14, 16},
	"left_knee":      {23, 25, 27},
	"right_knee":     {24, 26, 28},
	"left_shoulder":  {11, 12, 13},
	"right_shoulder": {12, 11, 14},
	"left_hip":       {23, 24, 25},
	"right_hip":      {24, 23, 26},
}

// bodyLandmarkCount is the full detector body landmark count.
const bodyLandmarkCount = 33

// visibleThreshold gates the per-landmark Visible flag.
const visibleThreshold = 0.3
