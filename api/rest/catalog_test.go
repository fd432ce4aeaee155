package rest_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/dungeonfighter/resource"
)

func TestCatalog_List(t *testing.T) {
	env := newArenaRouter(t)

	w := get(env.r, "/api/catalog")
	require.Equal(t, http.StatusOK, w.Code)
	var names resource.Names
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &names))
	assert.Equal(t, []string{"Titan"}, names.Heroes)
	assert.Equal(t, []string{"Slime"}, names.Enemies)
	assert.Equal(t, []string{"Pit"}, names.Environments)
}

func TestCatalog_Entries(t *testing.T) {
	env := newArenaRouter(t)

	w := get(env.r, "/api/catalog/heroes/titan")
	require.Equal(t, http.StatusOK, w.Code)
	var hero resource.FighterDef
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hero))
	assert.Equal(t, 10000, hero.MaxHealth)

	w = get(env.r, "/api/catalog/environments/pit")
	require.Equal(t, http.StatusOK, w.Code)
	var pit resource.EnvironmentDef
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pit))
	assert.Equal(t, "dark pit", pit.Location)

	assert.Equal(t, http.StatusOK, get(env.r, "/api/catalog/enemies/SLIME").Code)
	assert.Equal(t, http.StatusNotFound, get(env.r, "/api/catalog/heroes/Slime").Code)
	assert.Equal(t, http.StatusNotFound, get(env.r, "/api/catalog/enemies/Titan").Code)
	assert.Equal(t, http.StatusNotFound, get(env.r, "/api/catalog/environments/Moon").Code)
}
