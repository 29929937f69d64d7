//go:build python

package carracing

import (
	"fmt"
	"runtime"

	python3 "github.com/DataDog/go-python3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
	"gorgonia.org/tensor"

	env "github.com/samuelfneumann/psiracing/environment"
)

// CarRacing is a BaseEnv which wraps a Python CarRacing-obstacles
// environment.
//
// The Python interpreter is bound to the OS thread that New is called
// on, so a CarRacing must only be used from the goroutine that created
// it.
type CarRacing struct {
	pyEnv  *python3.PyObject
	pyList *python3.PyObject

	// Snapshot of the car after the last Reset or Step
	car car
}

// New returns a new CarRacing environment constructed from the Python
// class described by c
func New(c Config) (env.BaseEnv, error) {
	runtime.LockOSThread()

	if !python3.Py_IsInitialized() {
		python3.Py_Initialize()
	}

	module := python3.PyImport_ImportModule(c.Module)
	if module == nil {
		return nil, fmt.Errorf("new: could not import module %v: %v",
			c.Module, pyErr())
	}
	defer module.DecRef()

	class := module.GetAttrString(c.Class)
	if class == nil {
		return nil, fmt.Errorf("new: module %v has no class %v: %v",
			c.Module, c.Class, pyErr())
	}
	defer class.DecRef()

	verbose := python3.PyLong_FromLong(0)
	if c.Verbose {
		verbose.DecRef()
		verbose = python3.PyLong_FromLong(1)
	}
	defer verbose.DecRef()

	pyEnv := class.CallFunctionObjArgs(verbose)
	if pyEnv == nil {
		return nil, fmt.Errorf("new: could not construct %v: %v", c.Class,
			pyErr())
	}

	builtins := python3.PyImport_ImportModule("builtins")
	if builtins == nil {
		pyEnv.DecRef()
		return nil, fmt.Errorf("new: could not import builtins: %v",
			pyErr())
	}
	defer builtins.DecRef()

	return &CarRacing{
		pyEnv:  pyEnv,
		pyList: builtins.GetAttrString("list"),
	}, nil
}

// SetParameters sets the track curvature rate and obstacle probability
// used at the next Reset
func (c *CarRacing) SetParameters(curvatureRate, obstacleProbability float64) {
	k := python3.PyFloat_FromDouble(curvatureRate)
	defer k.DecRef()
	c.pyEnv.SetAttrString("TRACK_TURN_RATE", k)

	p := python3.PyFloat_FromDouble(obstacleProbability)
	defer p.DecRef()
	c.pyEnv.SetAttrString("OBSTACLE_PROB", p)
}

// Reset generates a new track and returns the first image
func (c *CarRacing) Reset() (*tensor.Dense, error) {
	obs := c.pyEnv.CallMethodArgs("reset")
	if obs == nil {
		return nil, fmt.Errorf("reset: %v", pyErr())
	}
	defer obs.DecRef()

	image, err := c.image(obs)
	if err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}

	if err := c.snapshot(); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	return image, nil
}

// Step takes one simulation step with the action a
func (c *CarRacing) Step(a *mat.VecDense) (*tensor.Dense, float64, bool,
	map[string]interface{}, error) {
	if a == nil || a.Len() != 3 {
		return nil, 0, true, nil, fmt.Errorf("step: action must have "+
			"3 dimensions: %w", env.ErrInvalidConfiguration)
	}

	action := python3.PyList_New(a.Len())
	for i := 0; i < a.Len(); i++ {
		// PyList_SetItem steals the reference to the item
		python3.PyList_SetItem(action, i, python3.PyFloat_FromDouble(a.AtVec(i)))
	}
	defer action.DecRef()

	result := c.pyEnv.CallMethodArgs("step", action)
	if result == nil {
		return nil, 0, true, nil, fmt.Errorf("step: %v", pyErr())
	}
	defer result.DecRef()

	// Tuple items are borrowed references
	image, err := c.image(python3.PyTuple_GetItem(result, 0))
	if err != nil {
		return nil, 0, true, nil, fmt.Errorf("step: %w", err)
	}
	reward := python3.PyFloat_AsDouble(python3.PyTuple_GetItem(result, 1))
	done := python3.PyLong_AsLong(python3.PyTuple_GetItem(result, 2)) != 0

	if err := c.snapshot(); err != nil {
		return nil, 0, true, nil, fmt.Errorf("step: %w", err)
	}

	return image, reward, done, map[string]interface{}{}, nil
}

// TilesVisited returns the number of road tiles visited this episode
func (c *CarRacing) TilesVisited() int {
	count := c.pyEnv.GetAttrString("tile_visited_count")
	if count == nil {
		python3.PyErr_Clear()
		return 0
	}
	defer count.DecRef()
	return python3.PyLong_AsLong(count)
}

// ElapsedTime returns the simulated time of the episode in seconds
func (c *CarRacing) ElapsedTime() float64 {
	t := c.pyEnv.GetAttrString("t")
	if t == nil {
		python3.PyErr_Clear()
		return 0
	}
	defer t.DecRef()
	return python3.PyFloat_AsDouble(t)
}

// Car returns the state of the car after the last Reset or Step
func (c *CarRacing) Car() env.Car {
	return c.car
}

// ObservationSpec implements the environment.BaseEnv interface
func (c *CarRacing) ObservationSpec() env.Spec {
	return ObservationSpec()
}

// ActionSpec implements the environment.BaseEnv interface
func (c *CarRacing) ActionSpec() env.Spec {
	return ActionSpec()
}

// Close closes the Python environment and releases it
func (c *CarRacing) Close() error {
	if c.pyEnv == nil {
		return nil
	}

	result := c.pyEnv.CallMethodArgs("close")
	var err error
	if result == nil {
		err = fmt.Errorf("close: %v", pyErr())
	} else {
		result.DecRef()
	}

	c.pyEnv.DecRef()
	c.pyList.DecRef()
	c.pyEnv, c.pyList = nil, nil
	runtime.UnlockOSThread()

	return err
}

// image converts a numpy image of shape (StateH, StateW, Channels) to
// a tensor
func (c *CarRacing) image(obs *python3.PyObject) (*tensor.Dense, error) {
	flat := obs.CallMethodArgs("ravel")
	if flat == nil {
		return nil, fmt.Errorf("image: could not flatten: %v", pyErr())
	}
	defer flat.DecRef()

	values := flat.CallMethodArgs("tolist")
	if values == nil {
		return nil, fmt.Errorf("image: could not convert to list: %v",
			pyErr())
	}
	defer values.DecRef()

	n := python3.PyList_Size(values)
	if n != StateH*StateW*Channels {
		return nil, fmt.Errorf("image: expected %v values but got %v",
			StateH*StateW*Channels, n)
	}

	data := make([]float64, n)
	for i := range data {
		item := python3.PyList_GetItem(values, i)
		if python3.PyLong_Check(item) {
			data[i] = float64(python3.PyLong_AsLong(item))
		} else {
			data[i] = python3.PyFloat_AsDouble(item)
		}
	}

	return tensor.New(tensor.WithShape(StateH, StateW, Channels),
		tensor.WithBacking(data)), nil
}

// snapshot reads the wheel contacts and hull position of the Python car
func (c *CarRacing) snapshot() error {
	pyCar := c.pyEnv.GetAttrString("car")
	if pyCar == nil {
		return fmt.Errorf("snapshot: no car: %v", pyErr())
	}
	defer pyCar.DecRef()

	hull := pyCar.GetAttrString("hull")
	if hull == nil {
		return fmt.Errorf("snapshot: no hull: %v", pyErr())
	}
	defer hull.DecRef()

	position := hull.GetAttrString("position")
	if position == nil {
		return fmt.Errorf("snapshot: no hull position: %v", pyErr())
	}
	defer position.DecRef()

	x, y := position.GetAttrString("x"), position.GetAttrString("y")
	if x == nil || y == nil {
		return fmt.Errorf("snapshot: hull position: %v", pyErr())
	}
	defer x.DecRef()
	defer y.DecRef()

	pyWheels := pyCar.GetAttrString("wheels")
	if pyWheels == nil {
		return fmt.Errorf("snapshot: no wheels: %v", pyErr())
	}
	defer pyWheels.DecRef()

	wheelList := c.pyList.CallFunctionObjArgs(pyWheels)
	if wheelList == nil {
		return fmt.Errorf("snapshot: wheels: %v", pyErr())
	}
	defer wheelList.DecRef()

	wheels := make([]wheel, python3.PyList_Size(wheelList))
	for i := range wheels {
		w, err := c.wheel(python3.PyList_GetItem(wheelList, i))
		if err != nil {
			return fmt.Errorf("snapshot: wheel %v: %w", i, err)
		}
		wheels[i] = w
	}

	c.car = car{
		wheels: wheels,
		position: r2.Vec{
			X: python3.PyFloat_AsDouble(x),
			Y: python3.PyFloat_AsDouble(y),
		},
	}
	return nil
}

// wheel reads the frictions of the tiles a Python wheel touches
func (c *CarRacing) wheel(pyWheel *python3.PyObject) (wheel, error) {
	tileSet := pyWheel.GetAttrString("tiles")
	if tileSet == nil {
		return nil, fmt.Errorf("no tiles: %v", pyErr())
	}
	defer tileSet.DecRef()

	tileList := c.pyList.CallFunctionObjArgs(tileSet)
	if tileList == nil {
		return nil, fmt.Errorf("tiles: %v", pyErr())
	}
	defer tileList.DecRef()

	w := make(wheel, python3.PyList_Size(tileList))
	for i := range w {
		friction := python3.PyList_GetItem(tileList, i).
			GetAttrString("road_friction")
		if friction == nil {
			return nil, fmt.Errorf("tile %v: %v", i, pyErr())
		}
		w[i] = tile(python3.PyFloat_AsDouble(friction))
		friction.DecRef()
	}
	return w, nil
}

// pyErr prints and clears the pending Python exception, returning a
// placeholder describing it
func pyErr() error {
	if python3.PyErr_Occurred() == nil {
		return fmt.Errorf("unknown python error")
	}
	python3.PyErr_Print()
	return fmt.Errorf("python exception (traceback printed to stderr)")
}
