package jobs

import "testing"

func TestScaleGrade(t *testing.T) {
	cases := []struct {
		correct, total int
		want           float64
	}{
		{0, 10, 1.0},
		{3, 10, 2.5},
		{6, 10, 4.0},
		{8, 10, 5.5},
		{10, 10, 7.0},
		{0, 0, 1.0},
		{5, 0, 1.0},
	}
	for _, c := range cases {
		if got := ScaleGrade(c.correct, c.total); got != c.want {
			t.Errorf("ScaleGrade(%d, %d) = %.1f, want %.1f", c.correct, c.total, got, c.want)
		}
	}
}

func TestNewGradesRecalcTask(t *testing.T) {
	task, err := NewGradesRecalcTask(42)
	if err != nil {
		t.Fatal(err)
	}
	if task.Type() != TaskGradesRecalc {
		t.Errorf("task type = %q, want %q", task.Type(), TaskGradesRecalc)
	}
	if string(task.Payload()) != `{"application_id":42}` {
		t.Errorf("unexpected payload %s", task.Payload())
	}
}
