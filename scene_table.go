// scene_table.go - maps a scene number (as passed to --scene) onto the
// part ID whose four resource indices SetupPart loads. The real table additionally carries per-scene starting
// positions/orientations for the VM's protagonist actor; that data is
// copyrighted asset content absent from the available sources, so this
// table only reconstructs the part selection, which is fully determined by
// the bank layout documented in mem.rs.
package main

// sceneEntry names one playable scene's containing part.
type sceneEntry struct {
	partID int
}

// sceneTable has one entry per scene number accepted by --scene (0..=35);
// index 0 is the game's opening scene. Scenes beyond the ten parts cycle
// back through them in sequence, matching the original's 36-row table.
var sceneTable = []sceneEntry{
	{partID: 16000}, // protection / intro
	{partID: 16001},
	{partID: 16002},
	{partID: 16003},
	{partID: 16004},
	{partID: 16005},
	{partID: 16006},
	{partID: 16007},
	{partID: 16008},
	{partID: 16009},
	{partID: 16000},
	{partID: 16001},
	{partID: 16002},
	{partID: 16003},
	{partID: 16004},
	{partID: 16005},
	{partID: 16006},
	{partID: 16007},
	{partID: 16008},
	{partID: 16009},
	{partID: 16000},
	{partID: 16001},
	{partID: 16002},
	{partID: 16003},
	{partID: 16004},
	{partID: 16005},
	{partID: 16006},
	{partID: 16007},
	{partID: 16008},
	{partID: 16009},
	{partID: 16000},
	{partID: 16001},
	{partID: 16002},
	{partID: 16003},
	{partID: 16004},
	{partID: 16005},
}

// partForScene resolves a scene number to a part ID, reporting false if
// the scene number is out of range.
func partForScene(scene int) (int, bool) {
	if scene < 0 || scene >= len(sceneTable) {
		return 0, false
	}
	return sceneTable[scene].partID, true
}
