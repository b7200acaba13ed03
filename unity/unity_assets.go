package unity

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"
)

// Asset paths are slash separated and start with "Assets/".
type Asset struct {
	GUID string
	Path string
}

type Assets interface {
	GetAsset(guid string) *Asset
	GetAssetByPath(assetPath string) *Asset
	GetAllAssets() []*Asset
	Open(assetPath string) (fs.File, error)
	OpenMeta(assetPath string) (fs.File, error)
	Close() error
}

type assetIndex struct {
	byGUID map[string]*Asset
	byPath map[string]*Asset
}

func newAssetIndex() assetIndex {
	return assetIndex{byGUID: map[string]*Asset{}, byPath: map[string]*Asset{}}
}

func (a *assetIndex) add(asset *Asset) {
	a.byGUID[asset.GUID] = asset
	a.byPath[asset.Path] = asset
}

func (a *assetIndex) GetAsset(guid string) *Asset {
	return a.byGUID[guid]
}

func (a *assetIndex) GetAssetByPath(path string) *Asset {
	return a.byPath[filepath.ToSlash(path)]
}

func (a *assetIndex) GetAllAssets() []*Asset {
	var assets []*Asset
	for _, asset := range a.byGUID {
		assets = append(assets, asset)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].Path < assets[j].Path })
	return assets
}

// OpenAssets indexes the .meta files of an Assets directory.
func OpenAssets(assetsDir string) (Assets, error) {
	root := filepath.Dir(filepath.Clean(assetsDir))
	assets := &assetsFs{root: root, assetIndex: newAssetIndex()}
	err := filepath.Walk(assetsDir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".meta") {
			return nil
		}
		meta, err := readMeta(path)
		if err != nil {
			log.Printf("WARNING: %s: %v", path, err)
			return nil
		}
		if meta.GUID == "" {
			return nil
		}
		rel, err := filepath.Rel(root, strings.TrimSuffix(path, ".meta"))
		if err != nil {
			return err
		}
		assets.add(&Asset{GUID: meta.GUID, Path: filepath.ToSlash(rel)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assets, nil
}

type assetsFs struct {
	assetIndex
	root string
}

func (a *assetsFs) Open(path string) (fs.File, error) {
	return os.Open(filepath.Join(a.root, filepath.FromSlash(path)))
}

func (a *assetsFs) OpenMeta(path string) (fs.File, error) {
	return a.Open(path + ".meta")
}

func (a *assetsFs) Close() error {
	return nil
}

// OpenPackage opens a .unitypackage file, or a directory it was extracted to.
func OpenPackage(packagePath string) (Assets, error) {
	stat, err := os.Stat(packagePath)
	if err != nil {
		return nil, err
	}
	if stat.IsDir() {
		return scanPackage(packagePath, false)
	}
	tmpDir, err := os.MkdirTemp("", "umeshconv_assets_")
	if err != nil {
		return nil, err
	}
	if err = extractPackage(packagePath, tmpDir); err != nil {
		os.RemoveAll(tmpDir)
		return nil, err
	}
	return scanPackage(tmpDir, true)
}

// packageFs is an extracted package: one <guid> directory per asset holding
// "pathname", "asset" and "asset.meta".
type packageFs struct {
	assetIndex
	dir  string
	temp bool
}

func (a *packageFs) Open(path string) (fs.File, error) {
	return a.open(path, "asset")
}

func (a *packageFs) OpenMeta(path string) (fs.File, error) {
	return a.open(path, "asset.meta")
}

func (a *packageFs) open(path, file string) (fs.File, error) {
	asset := a.GetAssetByPath(path)
	if asset == nil {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return os.Open(filepath.Join(a.dir, asset.GUID, file))
}

func (a *packageFs) Close() error {
	if a.temp {
		return os.RemoveAll(a.dir)
	}
	return nil
}

func scanPackage(dir string, temp bool) (*packageFs, error) {
	ent, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	pkg := &packageFs{assetIndex: newAssetIndex(), dir: dir, temp: temp}
	for _, f := range ent {
		if !f.IsDir() {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, f.Name(), "pathname"))
		if os.IsNotExist(err) {
			continue
		} else if err != nil {
			return nil, err
		}
		// the pathname file may carry a second line
		path := strings.TrimSpace(strings.SplitN(string(b), "\n", 2)[0])
		pkg.add(&Asset{GUID: f.Name(), Path: path})
	}
	return pkg, nil
}

func extractPackage(packagePath, dst string) error {
	r, err := os.Open(packagePath)
	if err != nil {
		return err
	}
	defer r.Close()
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gzr.Close()
	tr := tar.NewReader(gzr)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		name := filepath.Join(dst, filepath.FromSlash(header.Name))
		if !strings.HasPrefix(name, filepath.Clean(dst)+string(filepath.Separator)) {
			return fmt.Errorf("unity: invalid path in package: %s", header.Name)
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(name, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
				return err
			}
			f, err := os.Create(name)
			if err != nil {
				return err
			}
			_, err = io.Copy(f, tr)
			f.Close()
			if err != nil {
				return err
			}
		}
	}
}

func readMeta(path string) (*MetaFile, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return decodeMeta(r)
}

func decodeMeta(r io.Reader) (*MetaFile, error) {
	var meta MetaFile
	if err := yaml.NewDecoder(r).Decode(&meta); err != nil && err != io.EOF {
		return nil, err
	}
	return &meta, nil
}
