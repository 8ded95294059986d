package job

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/akrolimb/socketlab/pkg/geom"
	"github.com/akrolimb/socketlab/pkg/limb"
	"github.com/akrolimb/socketlab/pkg/prov"
	"github.com/akrolimb/socketlab/pkg/socket"
)

func thinPlate(s float64) *geom.Mesh {
	verts := []v3.Vec{
		{X: 0, Y: 0, Z: 0}, {X: s, Y: 0, Z: 0}, {X: s, Y: s, Z: 0}, {X: 0, Y: s, Z: 0},
	}
	faces := [][3]int{{0, 1, 2}, {0, 2, 3}}
	return &geom.Mesh{Vertices: verts, Faces: faces}
}

func TestRescale(t *testing.T) {
	tests := []struct {
		name string
		size float64
		req  Request
		want float64 // resulting max extent
	}{
		{"explicit factor", 10, Request{ScaleFactor: 25.4}, 254},
		{"assume meters", 0.2, Request{AssumeUnits: "m"}, 200},
		{"assume centimeters", 20, Request{AssumeUnits: "cm"}, 200},
		{"assume millimeters keeps tiny scans", 0.2, Request{AssumeUnits: "mm"}, 0.2},
		{"heuristic meter scan", 0.2, Request{}, 200},
		{"heuristic leaves plausible scans", 150, Request{}, 150},
		{"heuristic leaves mid-range", 12, Request{}, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := rescale(thinPlate(tt.size), tt.req)
			got := out.Extents()[0]
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("extent after rescale = %g, want %g", got, tt.want)
			}
		})
	}
}

func TestSectionHeights(t *testing.T) {
	tests := []struct {
		name       string
		minZ, maxZ float64
		want       []float64
	}{
		{"includes base and near-top planes", 0, 83, []float64{0, 10, 20, 30, 40, 50, 60, 70, 80}},
		{"exact multiple reaches the top", 0, 40, []float64{0, 10, 20, 30, 40}},
		{"nonzero base", 60, 95, []float64{60, 70, 80, 90}},
		{"flat extent still samples the base", 5, 5, []float64{5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sectionHeights(tt.minZ, tt.maxZ)
			if len(got) != len(tt.want) {
				t.Fatalf("sectionHeights(%g, %g) = %v, want %v", tt.minZ, tt.maxZ, got, tt.want)
			}
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > 1e-9 {
					t.Errorf("height %d = %g, want %g", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBuildPlanFromParams(t *testing.T) {
	req := Request{
		ParamsJSON: `{"clearance_mm":3.5,"wall_mm":6,"voxel_mm":0.8,"trim_z_mm":240}`,
		MarksJSON:  `[{"type":"relief","center_mm":[1,2,3],"radius_mm":9,"amount_mm":1.5}]`,
	}
	plan, err := buildPlan(req, nil)
	if err != nil {
		t.Fatalf("buildPlan: %v", err)
	}
	if plan.ClearanceMM != 3.5 || plan.WallMM != 6 {
		t.Errorf("plan = %+v", plan)
	}
	if plan.VoxelMM == nil || *plan.VoxelMM != 0.8 {
		t.Errorf("VoxelMM = %v", plan.VoxelMM)
	}
	if plan.TrimZMM == nil || *plan.TrimZMM != 240 {
		t.Errorf("TrimZMM = %v", plan.TrimZMM)
	}
	if len(plan.Marks) != 1 || plan.Marks[0].Type != socket.MarkRelief {
		t.Errorf("marks = %+v", plan.Marks)
	}
}

func TestBuildPlanDefaults(t *testing.T) {
	plan, err := buildPlan(Request{}, nil)
	if err != nil {
		t.Fatalf("buildPlan: %v", err)
	}
	if plan.ClearanceMM != socket.DefaultClearanceMM || plan.WallMM != socket.DefaultWallMM {
		t.Errorf("plan = %+v", plan)
	}
}

func TestBuildPlanRecipeWins(t *testing.T) {
	req := Request{
		ParamsJSON: `{"clearance_mm":9}`,
		Recipe:     `(socket :clearance 3.25)`,
	}
	plan, err := buildPlan(req, nil)
	if err != nil {
		t.Fatalf("buildPlan: %v", err)
	}
	if plan.ClearanceMM != 3.25 {
		t.Errorf("ClearanceMM = %g, want the recipe's 3.25", plan.ClearanceMM)
	}
}

func TestBuildPlanBadParams(t *testing.T) {
	if _, err := buildPlan(Request{ParamsJSON: `{`}, nil); err == nil {
		t.Error("buildPlan accepted malformed params")
	}
	if _, err := buildPlan(Request{Recipe: `(pad :radius 5)`}, nil); err == nil {
		t.Error("buildPlan accepted a recipe with eval errors")
	}
}

func TestRunEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("full pipeline run")
	}
	dir := t.TempDir()
	m, err := limb.TaperedCylinder(120, 15, 20)
	if err != nil {
		t.Fatalf("limb: %v", err)
	}
	limbPath := filepath.Join(dir, "limb.stl")
	if err := geom.SaveSTL(limbPath, m); err != nil {
		t.Fatalf("save limb: %v", err)
	}

	voxelMM := 1.0
	plan := socket.DefaultPlan()
	plan.VoxelMM = &voxelMM
	res, err := Run(Request{LimbPath: limbPath, Plan: &plan}, dir, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, name := range []string{"socket_inner.stl", "socket_outer.stl", "socket_trimmed.stl", "sections.csv", "provenance.json"} {
		path, ok := res.Outputs[name]
		if !ok {
			t.Fatalf("missing output %s", name)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("output %s: %v", name, err)
		}
		if info.Size() == 0 {
			t.Errorf("output %s is empty", name)
		}
	}
	if res.Stats.Faces == 0 {
		t.Error("Stats.Faces = 0")
	}

	// Provenance carries the input hash and the parameters used.
	data, err := os.ReadFile(res.Outputs["provenance.json"])
	if err != nil {
		t.Fatal(err)
	}
	var rec prov.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("provenance not valid JSON: %v", err)
	}
	wantSHA, err := prov.SHA256File(limbPath)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Inputs["limb_sha256"] != wantSHA {
		t.Errorf("provenance limb hash = %v, want %s", rec.Inputs["limb_sha256"], wantSHA)
	}
	if rec.Params["wall_mm"] != 4.0 {
		t.Errorf("provenance wall_mm = %v", rec.Params["wall_mm"])
	}
}
