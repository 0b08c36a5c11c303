package game

import (
	"context"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxelworld/internal/protocol"
	"github.com/annel0/voxelworld/internal/render"
	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world"
	"github.com/annel0/voxelworld/internal/world/block"
	"github.com/annel0/voxelworld/internal/world/entity"
)

func newClient(t *testing.T) (*ClientWorld, *fakeClientConn, *render.Null) {
	t.Helper()
	cfg := DefaultClientConfig()
	cfg.ProcessorWorkers = 0
	conn := &fakeClientConn{}
	r := render.NewNull()
	w := NewClientWorld(cfg, conn, r)
	t.Cleanup(w.Close)
	return w, conn, r
}

// loadNeighborhood отправляет клиенту 27 чанков пола вокруг center
func loadNeighborhood(w *ClientWorld, conn *fakeClientConn, center vec.Vec3) {
	for _, pos := range around(center) {
		conn.push(activation(pos, floor(16)))
	}
	w.Tick(context.Background(), step)
}

func TestActivationWaitsForNeighborhood(t *testing.T) {
	w, conn, r := newClient(t)
	ctx := context.Background()
	center := vec.Vec3{}
	corner := vec.New(1, 1, 1)

	for _, pos := range around(center) {
		if pos != corner {
			conn.push(activation(pos, floor(16)))
		}
	}
	w.Tick(ctx, step)

	state, ok := w.Dimension().State(center)
	require.True(t, ok)
	assert.Equal(t, world.Stasis, state, "без угла окрестности чанк не активируется")
	c, _ := w.Dimension().Chunk(center)
	assert.True(t, c.VisibilityResolved(), "все соседи по граням есть")
	assert.False(t, c.AOResolved())
	assert.Equal(t, 0, r.Meshes())

	conn.push(activation(corner, floor(16)))
	w.Tick(ctx, step)

	state, _ = w.Dimension().State(center)
	assert.Equal(t, world.Active, state)
	assert.True(t, c.AOResolved())
	assert.Equal(t, 1, r.Meshes(), "меш только у активного чанка")

	for _, pos := range around(center) {
		if pos != center {
			state, _ := w.Dimension().State(pos)
			assert.Equal(t, world.Stasis, state, "у крайних чанков нет своей окрестности")
		}
	}
}

func TestEmptyChunkActivatesImmediately(t *testing.T) {
	w, conn, r := newClient(t)
	pos := vec.New(0, 0, 3)

	conn.push(activation(pos, floor(0)))
	w.Tick(context.Background(), step)

	state, _ := w.Dimension().State(pos)
	assert.Equal(t, world.Active, state)
	assert.Equal(t, 0, w.Unresolved())
	assert.Equal(t, 0, r.Meshes(), "у воздуха нет граней")
}

func TestRepeatedActivationIsIdempotent(t *testing.T) {
	ctx := context.Background()
	once, onceConn, _ := newClient(t)
	twice, twiceConn, twiceRender := newClient(t)
	center := vec.Vec3{}

	loadNeighborhood(once, onceConn, center)
	loadNeighborhood(twice, twiceConn, center)
	twiceConn.push(activation(center, floor(16)))
	twice.Tick(ctx, step)
	once.Tick(ctx, step)

	for _, pos := range around(center) {
		s1, _ := once.Dimension().State(pos)
		s2, _ := twice.Dimension().State(pos)
		require.Equal(t, s1, s2, "состояние %v", pos)

		a, _ := once.Dimension().Chunk(pos)
		b, _ := twice.Dimension().Chunk(pos)
		require.Equal(t, a.NeighborVisibilityMask, b.NeighborVisibilityMask, "маска видимости %v", pos)
		require.Equal(t, a.NeighborAOMask, b.NeighborAOMask, "маска затенения %v", pos)
		for i := 0; i < a.Len(); i++ {
			if a.At(i) != b.At(i) {
				t.Fatalf("блок %d чанка %v различается: %+v != %+v", i, pos, a.At(i), b.At(i))
			}
		}
	}
	assert.Equal(t, 1, twiceRender.Meshes(), "старый меш заменен")
}

func TestEditReResolvesBorder(t *testing.T) {
	w, conn, r := newClient(t)
	ctx := context.Background()
	center := vec.Vec3{}
	loadNeighborhood(w, conn, center)
	created := r.Created()

	right := vec.New(1, 0, 0)
	theirs, _ := w.Dimension().Chunk(right)
	facing := world.Linearize(world.ChunkAxis, vec.New(0, 5, 10))
	require.Zero(t, theirs.At(facing).VisibleMask&block.Left.Bit(), "грань закрыта камнем соседа")

	blocks := floor(16)
	blocks[world.Linearize(world.ChunkAxis, vec.New(world.ChunkAxis-1, 5, 10))] = block.Air
	conn.push(update(center, blocks))
	w.Tick(ctx, step)

	state, _ := w.Dimension().State(center)
	assert.Equal(t, world.Active, state, "правка не снимает активность")
	assert.NotZero(t, theirs.At(facing).VisibleMask&block.Left.Bit(), "у соседа открылась грань")
	got, ok := w.Dimension().BlockAt(vec.New(world.ChunkAxis-1, 5, 10))
	require.True(t, ok)
	assert.Equal(t, block.Air, got)
	assert.Equal(t, created+1, r.Created(), "меш пересобран")
	assert.Equal(t, 1, r.Meshes())
}

func TestInteriorEditMarksChunkUpdated(t *testing.T) {
	w, conn, r := newClient(t)
	loadNeighborhood(w, conn, vec.Vec3{})
	created := r.Created()

	blocks := floor(16)
	blocks[world.Linearize(world.ChunkAxis, vec.New(10, 10, 15))] = block.Air
	conn.push(update(vec.Vec3{}, blocks))
	w.Tick(context.Background(), step)

	assert.Equal(t, 26, w.Unresolved(), "ждут только крайние чанки")
	assert.Equal(t, created+1, r.Created())
}

func TestUpdateBeforeActivationIsBuffered(t *testing.T) {
	w, conn, _ := newClient(t)
	ctx := context.Background()
	pos := vec.New(2, 0, 0)
	target := vec.New(64+3, 4, 5)

	blocks := floor(0)
	blocks[world.Linearize(world.ChunkAxis, world.LocalOf(target, 0))] = block.Stone
	conn.pushID(2, update(pos, blocks))
	w.Tick(ctx, step)
	_, ok := w.Dimension().Chunk(pos)
	require.False(t, ok)

	conn.pushID(1, activation(pos, floor(0)))
	w.Tick(ctx, step)

	got, ok := w.Dimension().BlockAt(target)
	require.True(t, ok)
	assert.Equal(t, block.Stone, got, "отложенное обновление применено после активации")
}

func TestOlderUpdateIgnored(t *testing.T) {
	w, conn, _ := newClient(t)
	ctx := context.Background()
	pos := vec.Vec3{}
	target := vec.New(1, 1, 1)

	conn.pushID(5, activation(pos, floor(0)))
	w.Tick(ctx, step)

	blocks := floor(0)
	blocks[world.Linearize(world.ChunkAxis, target)] = block.Stone
	conn.pushID(3, update(pos, blocks))
	w.Tick(ctx, step)

	got, _ := w.Dimension().BlockAt(target)
	assert.Equal(t, block.Air, got)
}

func TestInputsAreSentAndPredicted(t *testing.T) {
	w, conn, _ := newClient(t)
	ctx := context.Background()
	forward := entity.Input{Direction: mgl32.Vec3{0, 1, 0}}

	w.Input(forward, step)
	w.Input(forward, step)
	w.Change(entity.Place, block.Stone)
	w.Tick(ctx, step)

	require.Len(t, conn.sent, 2)
	inputs, ok := conn.sent[0].(protocol.Inputs)
	require.True(t, ok, "сначала ввод, затем правки")
	assert.Len(t, inputs.Inputs, 2)
	assert.Equal(t, uint64(1), inputs.Inputs[0].Timestamp)
	assert.Equal(t, protocol.Change{Kind: entity.Place, Block: block.Stone}, conn.sent[1])

	p := w.Player()
	require.NotNil(t, p.Target)
	assert.InDelta(t, 2*step*p.Speed, p.Target.Y(), 1e-4)
}

func TestCorrectionReplaysUnacknowledged(t *testing.T) {
	w, conn, _ := newClient(t)
	ctx := context.Background()
	forward := entity.Input{Direction: mgl32.Vec3{0, 1, 0}}
	for i := 0; i < 3; i++ {
		w.Input(forward, step)
	}

	server := mgl32.Vec3{10, 0, 20}
	conn.push(protocol.Correct{Position: server, LastInput: 1})
	w.Tick(ctx, step)

	p := w.Player()
	assert.Len(t, p.Inputs, 2, "подтвержденный ввод удален")
	want, _ := entity.Predict(server, mgl32.Vec2{}, p.Speed, p.Inputs, 1)
	require.NotNil(t, p.Target)
	assert.InDelta(t, want.Y(), p.Target.Y(), 1e-4)
	assert.InDelta(t, want.Y(), p.Translation.Y(), 1e-4, "первая коррекция переносит игрока сразу")
	assert.Equal(t, float32(20), p.Translation.Z())

	conn.push(protocol.Correct{Position: server, LastInput: 3})
	w.Tick(ctx, step)
	assert.Empty(t, p.Inputs)
	assert.Equal(t, server, *p.Target)
}

func TestObserverLimitsMeshes(t *testing.T) {
	w, conn, r := newClient(t)
	ctx := context.Background()
	loadNeighborhood(w, conn, vec.Vec3{})
	require.Equal(t, 1, r.Meshes())

	far := mgl32.Vec3{float32(world.ChunkAxis * 20), 0, 0}
	conn.push(protocol.Correct{Position: far})
	w.Tick(ctx, step)
	assert.Equal(t, 0, r.Meshes(), "чанк вне радиуса обзора")
	_, ok := w.Dimension().Chunk(vec.Vec3{})
	assert.True(t, ok, "данные чанка сохраняются")

	conn.push(protocol.Correct{Position: mgl32.Vec3{}})
	for i := 0; i < 200 && r.Meshes() == 0; i++ {
		w.Tick(ctx, step)
	}
	assert.Equal(t, 1, r.Meshes(), "меш восстановлен при возвращении")
}
