package mask

// Label tags a voxel with the organ it belongs to. 0 is background and is
// never part of a catalog.
type Label uint8

const Background Label = 0

// RGB is a display color for a label, 0..255 per channel.
type RGB struct {
	R, G, B uint8
}

type LabelInfo struct {
	ID    Label
	Name  string
	Color RGB
}

// Catalog is the ordered set of labels defined for a session. IDs are stable
// for the session lifetime.
type Catalog []LabelInfo

// DefaultCatalog matches the abdominal organ set of the segmentation model.
func DefaultCatalog() Catalog {
	return Catalog{
		{ID: 1, Name: "Liver", Color: RGB{255, 68, 68}},
		{ID: 2, Name: "Spleen", Color: RGB{68, 255, 68}},
		{ID: 3, Name: "L.Kidney", Color: RGB{68, 68, 255}},
		{ID: 4, Name: "R.Kidney", Color: RGB{255, 255, 68}},
	}
}

func (c Catalog) Has(id Label) bool {
	for _, l := range c {
		if l.ID == id {
			return true
		}
	}
	return false
}

func (c Catalog) Get(id Label) (LabelInfo, bool) {
	for _, l := range c {
		if l.ID == id {
			return l, true
		}
	}
	return LabelInfo{}, false
}

// MaxID is the highest label id in the catalog.
func (c Catalog) MaxID() Label {
	var max Label
	for _, l := range c {
		if l.ID > max {
			max = l.ID
		}
	}
	return max
}
